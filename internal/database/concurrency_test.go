package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"toolcrib/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentCheckOutsDoNotLoseUpdates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	item := &models.InventoryItem{Location: "9F", Item: "End Mill", Quantity: 100}
	require.NoError(t, db.CreateItem(ctx, item))

	const numGoroutines = 20
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	errs := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			tx := &models.Transaction{Action: models.ActionCheckOut, User: "Operator", Qty: 3, Timestamp: time.Now()}
			_, err := db.RecordTransaction(ctx, item.ID, tx)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	stored, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100-numGoroutines*3), stored.Quantity)

	txs, err := db.ListTransactions(ctx, models.RecentTransactionsLimit)
	require.NoError(t, err)
	assert.Len(t, txs, numGoroutines)
}
