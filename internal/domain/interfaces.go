package domain

import (
	"context"
	"errors"

	"toolcrib/internal/models"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// ErrQuantityOverflow is returned when a check-in would push a quantity past int64.
var ErrQuantityOverflow = errors.New("quantity out of range")

// Store is the single handle every read and write of inventory state goes through.
type Store interface {
	ListInventory(ctx context.Context) ([]*models.InventoryItem, error)
	CreateItem(ctx context.Context, item *models.InventoryItem) error
	UpdateNotes(ctx context.Context, id int64, notes string) error
	ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error)
	// RecordTransaction appends tx and applies its clamped quantity delta to the
	// item in one atomic unit, returning the stored quantity afterwards.
	RecordTransaction(ctx context.Context, itemID int64, tx *models.Transaction) (int64, error)
	// DeleteItem removes the item and appends tx (a Deleted record) atomically.
	DeleteItem(ctx context.Context, itemID int64, tx *models.Transaction) error
	ReplaceAll(ctx context.Context, items []*models.InventoryItem, txs []*models.Transaction) error
	// Stats counts the rows of both collections.
	Stats(ctx context.Context) (models.Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

type DraftRepository interface {
	GetDraft(ctx context.Context, session string, itemID int64) (*models.RowDraft, error)
	ListDrafts(ctx context.Context, session string) (map[int64]*models.RowDraft, error)
	SetDraft(ctx context.Context, draft *models.RowDraft) error
	ClearDraft(ctx context.Context, session string, itemID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	ReplaceInventorySheet(ctx context.Context, items []models.InventoryItem) error
	AppendTransaction(ctx context.Context, tx *models.Transaction) error
}

// SyncWorker queues mirror jobs; implementations must not block on the remote side.
type SyncWorker interface {
	EnqueueInventorySnapshot(ctx context.Context, items []models.InventoryItem) error
	EnqueueTransaction(ctx context.Context, tx *models.Transaction) error
}
