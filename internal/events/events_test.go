package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe("test_event", func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	require.NoError(t, bus.PublishJSON("test_event", map[string]string{"foo": "bar"}))
	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, "test_event", received.Type)
	assert.Equal(t, int64(1), received.Seq)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(received.Payload, &decoded))
	assert.Equal(t, "bar", decoded["foo"])

	// other event types don't reach the handler
	require.NoError(t, bus.PublishJSON("other", 1))
	assert.Equal(t, 1, callCount)
}

func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	bus.now = func() time.Time { return fixed }

	var order []string
	bus.SubscribeAll(func(e *Event) error {
		order = append(order, "all:"+e.Type)
		return nil
	})
	bus.Subscribe(EventBookingCreated, func(e *Event) error {
		order = append(order, "typed")
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 1}))
	require.NoError(t, bus.PublishJSON(EventBookingCancelled, BookingEventPayload{BookingID: 1}))

	assert.Equal(t, []string{"typed", "all:" + EventBookingCreated, "all:" + EventBookingCancelled}, order)

	ev := &Event{Type: "x"}
	require.NoError(t, bus.Publish(ev))
	assert.Equal(t, int64(3), ev.Seq)
	assert.Equal(t, fixed, ev.CreatedAt)
}

func TestPublishCollectsHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	boom := errors.New("boom")

	var calls int
	bus.Subscribe("e", func(*Event) error { calls++; return boom })
	bus.Subscribe("e", func(*Event) error { calls++; return nil })

	err := bus.Publish(&Event{Type: "e"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestPublishJSONNilBus(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{}))
}

func TestPublishJSONMarshalError(t *testing.T) {
	bus := NewEventBus()
	assert.Error(t, bus.PublishJSON("bad", make(chan int)))
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	bus := NewEventBus()
	bus.SubscribeAll(LogHandler(&logger))

	require.NoError(t, bus.PublishJSON(EventBookingStatusChanged, BookingEventPayload{BookingID: 42, Status: "confirmed"}))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, EventBookingStatusChanged, line["event"])
	assert.Equal(t, float64(1), line["seq"])
	payload, ok := line["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), payload["booking_id"])
}
