package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"toolcrib/internal/domain"
	"toolcrib/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}

	logger := zerolog.Nop()
	s, err := Open(dsn, &logger)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAll(context.Background(), nil, nil))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordTransactionClamps(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	item := &models.InventoryItem{Location: "5A", Item: "Drill Bit", Quantity: 2}
	require.NoError(t, s.CreateItem(ctx, item))

	qty, err := s.RecordTransaction(ctx, item.ID, &models.Transaction{
		Action: models.ActionCheckOut, User: "Dana", Qty: 5, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), qty)

	qty, err = s.RecordTransaction(ctx, item.ID, &models.Transaction{
		Action: models.ActionCheckIn, User: "Dana", Qty: 3, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), qty)

	txs, err := s.ListTransactions(ctx, models.RecentTransactionsLimit)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.ActionCheckIn, txs[0].Action)
}

func TestStore_MissingItem(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.RecordTransaction(ctx, 987654, &models.Transaction{Action: models.ActionCheckIn, Qty: 1, Timestamp: time.Now()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.DeleteItem(ctx, 987654, &models.Transaction{Action: models.ActionDeleted, Timestamp: time.Now()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteAndNotes(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	item := &models.InventoryItem{Location: "3D", Item: "Hex Keys", Quantity: 4}
	require.NoError(t, s.CreateItem(ctx, item))
	require.NoError(t, s.UpdateNotes(ctx, item.ID, "metric"))

	items, err := s.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "metric", items[0].Notes)

	tx := &models.Transaction{Action: models.ActionDeleted, User: "Sam", Timestamp: time.Now()}
	require.NoError(t, s.DeleteItem(ctx, item.ID, tx))
	assert.Equal(t, int64(4), tx.Qty)

	items, err = s.ListInventory(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}
