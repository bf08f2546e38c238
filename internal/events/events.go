package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingRescheduled   = "booking_rescheduled"
	EventBookingStatusChanged = "booking_status_changed"
	EventBookingCancelled     = "booking_cancelled"
)

// BookingEventPayload is the booking snapshot attached to lifecycle events.
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	GroupID     string    `json:"group_id,omitempty"`
	ClientID    int64     `json:"client_id,omitempty"`
	ClientName  string    `json:"client_name"`
	ServiceID   int64     `json:"service_id"`
	ServiceName string    `json:"service_name"`
	StaffID     int64     `json:"staff_id,omitempty"`
	StaffName   string    `json:"staff_name,omitempty"`
	Status      string    `json:"status"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Price       string    `json:"price"`
}

// Event is one published occurrence. Seq grows by one per bus.
type Event struct {
	Seq       int64
	Type      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

type EventHandler func(event *Event) error

// EventBus is a synchronous in-process pub/sub. Handlers subscribed with
// SubscribeAll see every event after the per-type handlers.
type EventBus struct {
	mu       sync.RWMutex
	byType   map[string][]EventHandler
	wildcard []EventHandler
	seq      atomic.Int64
	now      func() time.Time
}

func NewEventBus() *EventBus {
	return &EventBus{byType: make(map[string][]EventHandler), now: time.Now}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	b.byType[eventType] = append(b.byType[eventType], handler)
	b.mu.Unlock()
}

func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	b.wildcard = append(b.wildcard, handler)
	b.mu.Unlock()
}

// Publish stamps the event and runs every matching handler, even if an
// earlier one fails. Handler errors are joined into the result.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.byType[event.Type])+len(b.wildcard))
	handlers = append(handlers, b.byType[event.Type]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	event.Seq = b.seq.Add(1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = b.now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

// PublishJSON marshals payload and publishes it. A nil bus drops the event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return b.Publish(&Event{Type: eventType, Payload: raw})
}

// LogHandler writes every event it receives to the audit log.
func LogHandler(logger *zerolog.Logger) EventHandler {
	return func(event *Event) error {
		logger.Info().
			Int64("seq", event.Seq).
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Time("at", event.CreatedAt).
			Msg("Booking event")
		return nil
	}
}
