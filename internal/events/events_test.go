package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int
	bus.Subscribe(EventTransactionRecorded, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	payload := TransactionEventPayload{ItemID: 3, Item: "Drill Bit", Action: "Check Out", Qty: 2, NewQuantity: 10, Timestamp: time.Now()}
	require.NoError(t, bus.PublishJSON(EventTransactionRecorded, payload))

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventTransactionRecorded, received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded TransactionEventPayload
	require.NoError(t, received.Decode(&decoded))
	assert.Equal(t, int64(10), decoded.NewQuantity)
	assert.Equal(t, "Drill Bit", decoded.Item)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe(EventItemCreated, func(_ *Event) error { count1++; return nil })
	bus.Subscribe(EventItemCreated, func(_ *Event) error { count2++; return nil })
	bus.Subscribe(EventItemDeleted, func(_ *Event) error { t.Fatal("wrong event type"); return nil })

	require.NoError(t, bus.PublishJSON(EventItemCreated, ItemEventPayload{ItemID: 1}))
	assert.Equal(t, 1, count1)
	assert.Equal(t, 1, count2)
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	var seen []string
	bus.SubscribeAll(func(e *Event) error { seen = append(seen, e.Type); return nil },
		EventItemCreated, EventNotesUpdated)

	require.NoError(t, bus.PublishJSON(EventNotesUpdated, ItemEventPayload{}))
	require.NoError(t, bus.PublishJSON(EventItemCreated, ItemEventPayload{}))
	require.NoError(t, bus.PublishJSON(EventInventoryRestored, RestoreEventPayload{}))
	assert.Equal(t, []string{EventNotesUpdated, EventItemCreated}, seen)
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	boom := errors.New("boom")
	var ran bool
	bus.Subscribe(EventItemDeleted, func(_ *Event) error { return boom })
	bus.Subscribe(EventItemDeleted, func(_ *Event) error { ran = true; return nil })

	err := bus.PublishJSON(EventItemDeleted, ItemEventPayload{})
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran, "later handlers still run")
}

func TestNilBus(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventItemCreated, ItemEventPayload{}))
}

func TestPublishJSONMarshalError(t *testing.T) {
	bus := NewEventBus()
	assert.Error(t, bus.PublishJSON(EventItemCreated, make(chan int)))
}
