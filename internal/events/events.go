package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

const (
	EventItemCreated         = "item_created"
	EventNotesUpdated        = "notes_updated"
	EventTransactionRecorded = "transaction_recorded"
	EventItemDeleted         = "item_deleted"
	EventInventoryRestored   = "inventory_restored"
)

// ItemEventPayload is the row snapshot sent with item events.
type ItemEventPayload struct {
	ItemID   int64  `json:"item_id"`
	Location string `json:"location"`
	Item     string `json:"item"`
	Quantity int64  `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// TransactionEventPayload carries a recorded transaction and the stock level it left behind.
type TransactionEventPayload struct {
	TransactionID int64     `json:"transaction_id"`
	ItemID        int64     `json:"item_id"`
	Item          string    `json:"item"`
	Action        string    `json:"action"`
	User          string    `json:"user"`
	Qty           int64     `json:"qty"`
	NewQuantity   int64     `json:"new_quantity"`
	Timestamp     time.Time `json:"timestamp"`
}

type RestoreEventPayload struct {
	Items        int `json:"items"`
	Transactions int `json:"transactions"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into out.
func (e *Event) Decode(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}

type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers handler for every listed event type.
func (b *EventBus) SubscribeAll(handler EventHandler, eventTypes ...string) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish runs every subscriber synchronously and joins their errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
}
