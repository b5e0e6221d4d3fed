package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"toolcrib/internal/domain"
	"toolcrib/internal/events"
	"toolcrib/internal/metrics"
	"toolcrib/internal/models"

	"github.com/rs/zerolog"
)

// Snapshot is the view state: the last loaded inventory and recent transactions.
type Snapshot struct {
	Items        []models.InventoryItem
	Transactions []models.Transaction
	Loading      bool
	LoadedAt     time.Time
}

// NewItemInput is the raw add-item form.
type NewItemInput struct {
	Item     string `json:"item"`
	Location string `json:"location"`
	Quantity string `json:"quantity"`
	Notes    string `json:"notes"`
}

// TransactionInput is the raw per-row transaction form.
type TransactionInput struct {
	ItemID int64  `json:"item_id"`
	Action string `json:"action"`
	User   string `json:"user"`
	Qty    string `json:"qty"`
}

type TransactionResult struct {
	Transaction models.Transaction `json:"transaction"`
	NewQuantity int64              `json:"new_quantity"`
}

// InventoryService owns the view state and every mutation of the inventory.
// The view is refreshed synchronously after each mutation attempt, whether or
// not the write succeeded.
type InventoryService struct {
	store    domain.Store
	eventBus domain.EventPublisher
	syncer   domain.SyncWorker
	logger   *zerolog.Logger
	now      func() time.Time

	refreshMu sync.Mutex
	mu        sync.RWMutex
	snapshot  Snapshot
}

func NewInventoryService(store domain.Store, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, logger *zerolog.Logger) *InventoryService {
	return &InventoryService{
		store:    store,
		eventBus: eventBus,
		syncer:   syncWorker,
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot returns a copy of the current view state.
func (s *InventoryService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Items:        append([]models.InventoryItem(nil), s.snapshot.Items...),
		Transactions: append([]models.Transaction(nil), s.snapshot.Transactions...),
		Loading:      s.snapshot.Loading,
		LoadedAt:     s.snapshot.LoadedAt,
	}
}

// Refresh reloads both collections. A failed fetch yields an empty collection.
func (s *InventoryService) Refresh(ctx context.Context) {
	s.refresh(ctx)
}

// refresh reports whether the inventory collection loaded.
func (s *InventoryService) refresh(ctx context.Context) bool {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.setLoading(true)
	ok := s.loadInventory(ctx)
	s.loadTransactions(ctx)
	s.setLoading(false)
	return ok
}

func (s *InventoryService) setLoading(v bool) {
	s.mu.Lock()
	s.snapshot.Loading = v
	s.mu.Unlock()
}

func (s *InventoryService) loadInventory(ctx context.Context) bool {
	rows, err := s.store.ListInventory(ctx)
	if err != nil {
		metrics.IncStoreError("list_inventory")
		s.logger.Warn().Err(err).Msg("failed to load inventory, showing empty list")
		rows = nil
	}

	items := make([]models.InventoryItem, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			items = append(items, *r)
		}
	}

	s.mu.Lock()
	s.snapshot.Items = items
	s.snapshot.LoadedAt = s.now()
	s.mu.Unlock()
	metrics.SetInventoryRows(len(items))
	return err == nil
}

func (s *InventoryService) loadTransactions(ctx context.Context) {
	rows, err := s.store.ListTransactions(ctx, models.RecentTransactionsLimit)
	if err != nil {
		metrics.IncStoreError("list_transactions")
		s.logger.Warn().Err(err).Msg("failed to load transactions, showing empty list")
		rows = nil
	}

	txs := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			txs = append(txs, *r)
		}
	}

	s.mu.Lock()
	s.snapshot.Transactions = txs
	s.mu.Unlock()
}

// ParseQuantity reads the add-item quantity: 0 when unparseable, never negative.
func ParseQuantity(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ValidateNewItem normalizes the form and checks the required fields.
func ValidateNewItem(in NewItemInput) (*models.InventoryItem, error) {
	item := &models.InventoryItem{
		Item:     strings.TrimSpace(in.Item),
		Location: models.NormalizeLocation(in.Location),
		Quantity: ParseQuantity(in.Quantity),
		Notes:    strings.TrimSpace(in.Notes),
	}
	if item.Item == "" {
		return nil, invalid("item", msgItemRequired)
	}
	if !models.ValidLocation(item.Location) {
		return nil, invalid("location", msgBadLocation)
	}
	return item, nil
}

// AddItem inserts a new inventory row. Duplicate item/location pairs are allowed.
func (s *InventoryService) AddItem(ctx context.Context, in NewItemInput) (*models.InventoryItem, error) {
	item, err := ValidateNewItem(in)
	if err != nil {
		return nil, err
	}

	err = s.store.CreateItem(ctx, item)
	s.afterMutation(ctx, err == nil)
	if err != nil {
		metrics.IncStoreError("create_item")
		s.logger.Error().Err(err).Str("item", item.Item).Str("location", item.Location).Msg("add item failed")
		return nil, err
	}

	s.logger.Info().Int64("item_id", item.ID).Str("item", item.Item).Str("location", item.Location).Msg("item added")
	s.publish(events.EventItemCreated, itemPayload(item))
	return item, nil
}

// UpdateNotes writes notes unconditionally. An unknown id is not an error.
func (s *InventoryService) UpdateNotes(ctx context.Context, id int64, notes string) error {
	err := s.store.UpdateNotes(ctx, id, notes)
	s.afterMutation(ctx, err == nil)
	if err != nil {
		metrics.IncStoreError("update_notes")
		s.logger.Error().Err(err).Int64("item_id", id).Msg("update notes failed")
		return err
	}
	s.publish(events.EventNotesUpdated, events.ItemEventPayload{ItemID: id, Notes: notes})
	return nil
}

// ParseTransactionQty reads the per-row quantity: 1 when empty or unparseable.
func ParseTransactionQty(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DefaultTransactionQty, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return models.DefaultTransactionQty, nil
	}
	if n < 1 {
		return 0, invalid("qty", msgQtyTooSmall)
	}
	return n, nil
}

// SubmitTransaction records a check-out or check-in and moves stock in one
// atomic store call. Check Out clamps at zero; Check In is unbounded.
func (s *InventoryService) SubmitTransaction(ctx context.Context, in TransactionInput) (*TransactionResult, error) {
	user := strings.TrimSpace(in.User)
	if user == "" {
		return nil, invalid("user", msgUserRequired)
	}
	if !models.IsStockAction(in.Action) {
		return nil, invalid("action", msgActionRequired)
	}
	qty, err := ParseTransactionQty(in.Qty)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		Action:    in.Action,
		User:      user,
		Qty:       qty,
		Timestamp: s.now(),
	}
	if cur, ok := s.findItem(in.ItemID); ok {
		if models.QuantityOverflows(cur.Quantity, models.Delta(tx.Action, qty)) {
			return nil, invalid("qty", msgQtyTooLarge)
		}
		tx.Item = cur.Item
	}

	newQty, err := s.store.RecordTransaction(ctx, in.ItemID, tx)
	s.afterMutation(ctx, err == nil)
	if errors.Is(err, domain.ErrQuantityOverflow) {
		s.logger.Warn().Int64("item_id", in.ItemID).Int64("qty", tx.Qty).Msg("transaction rejected, quantity out of range")
		return nil, invalid("qty", msgQtyTooLarge)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			metrics.IncStoreError("record_transaction")
		}
		s.logger.Error().Err(err).Int64("item_id", in.ItemID).Str("action", tx.Action).Msg("transaction failed")
		return nil, err
	}

	metrics.IncTransaction(tx.Action)
	s.logger.Info().
		Int64("item_id", in.ItemID).
		Str("item", tx.Item).
		Str("action", tx.Action).
		Str("user", tx.User).
		Int64("qty", tx.Qty).
		Int64("new_quantity", newQty).
		Msg("transaction recorded")

	s.publish(events.EventTransactionRecorded, events.TransactionEventPayload{
		TransactionID: tx.ID,
		ItemID:        in.ItemID,
		Item:          tx.Item,
		Action:        tx.Action,
		User:          tx.User,
		Qty:           tx.Qty,
		NewQuantity:   newQty,
		Timestamp:     tx.Timestamp,
	})
	s.enqueueTransaction(ctx, tx)

	return &TransactionResult{Transaction: *tx, NewQuantity: newQty}, nil
}

// DeleteItem removes a row and logs a Deleted transaction carrying its last quantity.
func (s *InventoryService) DeleteItem(ctx context.Context, id int64, user string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return invalid("user", msgUserRequired)
	}

	tx := &models.Transaction{Action: models.ActionDeleted, User: user, Timestamp: s.now()}

	err := s.store.DeleteItem(ctx, id, tx)
	s.afterMutation(ctx, err == nil)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			metrics.IncStoreError("delete_item")
		}
		s.logger.Error().Err(err).Int64("item_id", id).Msg("delete failed")
		return err
	}

	metrics.IncTransaction(tx.Action)
	s.logger.Info().Int64("item_id", id).Str("item", tx.Item).Str("user", user).Msg("item deleted")
	s.publish(events.EventItemDeleted, events.ItemEventPayload{ItemID: id, Item: tx.Item, Quantity: tx.Qty})
	s.enqueueTransaction(ctx, tx)
	return nil
}

// Restore replaces both collections, as loading a backup does.
func (s *InventoryService) Restore(ctx context.Context, items []*models.InventoryItem, txs []*models.Transaction) error {
	err := s.store.ReplaceAll(ctx, items, txs)
	s.afterMutation(ctx, err == nil)
	if err != nil {
		metrics.IncStoreError("replace_all")
		s.logger.Error().Err(err).Msg("restore failed")
		return fmt.Errorf("restore: %w", err)
	}

	s.logger.Info().Int("items", len(items)).Int("transactions", len(txs)).Msg("inventory restored")
	s.publish(events.EventInventoryRestored, events.RestoreEventPayload{Items: len(items), Transactions: len(txs)})
	return nil
}

// Search filters the loaded inventory. It never calls the store.
func (s *InventoryService) Search(f models.InventoryFilter) []models.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.InventoryItem, 0, len(s.snapshot.Items))
	for i := range s.snapshot.Items {
		if f.Match(&s.snapshot.Items[i]) {
			out = append(out, s.snapshot.Items[i])
		}
	}
	return out
}

// FilterTransactions filters the loaded recent transactions.
func (s *InventoryService) FilterTransactions(f models.TransactionFilter) []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0, len(s.snapshot.Transactions))
	for i := range s.snapshot.Transactions {
		if f.Match(&s.snapshot.Transactions[i]) {
			out = append(out, s.snapshot.Transactions[i])
		}
	}
	return out
}

func (s *InventoryService) Stats(ctx context.Context) (models.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		metrics.IncStoreError("stats")
		return stats, err
	}
	return stats, nil
}

// FullHistory reads every row of both collections straight from the store.
func (s *InventoryService) FullHistory(ctx context.Context) ([]models.InventoryItem, []models.Transaction, error) {
	rows, err := s.store.ListInventory(ctx)
	if err != nil {
		metrics.IncStoreError("list_inventory")
		return nil, nil, err
	}
	txRows, err := s.store.ListTransactions(ctx, models.ExportTransactionLimit)
	if err != nil {
		metrics.IncStoreError("list_transactions")
		return nil, nil, err
	}

	items := make([]models.InventoryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, *r)
	}
	txs := make([]models.Transaction, 0, len(txRows))
	for _, r := range txRows {
		txs = append(txs, *r)
	}
	return items, txs, nil
}

// Ready pings the store.
func (s *InventoryService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *InventoryService) findItem(id int64) (models.InventoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.snapshot.Items {
		if it.ID == id {
			return it, true
		}
	}
	return models.InventoryItem{}, false
}

// afterMutation reloads the view. The Sheets mirror only gets the new snapshot
// when the write went through and the reload succeeded, so an outage never
// replaces the sheet with an empty list.
func (s *InventoryService) afterMutation(ctx context.Context, written bool) {
	loaded := s.refresh(ctx)
	if s.syncer == nil || !written || !loaded {
		return
	}
	snap := s.Snapshot()
	if err := s.syncer.EnqueueInventorySnapshot(ctx, snap.Items); err != nil {
		s.logger.Error().Err(err).Msg("sheets enqueue error")
	}
}

func (s *InventoryService) enqueueTransaction(ctx context.Context, tx *models.Transaction) {
	if s.syncer == nil {
		return
	}
	cp := *tx
	if err := s.syncer.EnqueueTransaction(ctx, &cp); err != nil {
		s.logger.Error().Err(err).Int64("transaction_id", tx.ID).Msg("sheets enqueue error")
	}
}

func (s *InventoryService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func itemPayload(it *models.InventoryItem) events.ItemEventPayload {
	return events.ItemEventPayload{
		ItemID:   it.ID,
		Location: it.Location,
		Item:     it.Item,
		Quantity: it.Quantity,
		Notes:    it.Notes,
	}
}
