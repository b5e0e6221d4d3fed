package service

import (
	"context"

	"toolcrib/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListInventory(ctx context.Context) ([]*models.InventoryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InventoryItem), args.Error(1)
}

func (m *MockStore) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockStore) UpdateNotes(ctx context.Context, id int64, notes string) error {
	args := m.Called(ctx, id, notes)
	return args.Error(0)
}

func (m *MockStore) ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockStore) RecordTransaction(ctx context.Context, itemID int64, tx *models.Transaction) (int64, error) {
	args := m.Called(ctx, itemID, tx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) DeleteItem(ctx context.Context, itemID int64, tx *models.Transaction) error {
	args := m.Called(ctx, itemID, tx)
	return args.Error(0)
}

func (m *MockStore) ReplaceAll(ctx context.Context, items []*models.InventoryItem, txs []*models.Transaction) error {
	args := m.Called(ctx, items, txs)
	return args.Error(0)
}

func (m *MockStore) Stats(ctx context.Context) (models.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Stats), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

type MockSyncWorker struct {
	mock.Mock
}

func (m *MockSyncWorker) EnqueueInventorySnapshot(ctx context.Context, items []models.InventoryItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockSyncWorker) EnqueueTransaction(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// expectRefresh stubs the two loaders with the given rows.
func (m *MockStore) expectRefresh(items []*models.InventoryItem, txs []*models.Transaction) {
	m.On("ListInventory", mock.Anything).Return(items, nil)
	m.On("ListTransactions", mock.Anything, models.RecentTransactionsLimit).Return(txs, nil)
}
