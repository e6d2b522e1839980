package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tablebook/internal/metrics"
)

const (
	NewReservation     = "newReservation"
	UpdateReservation  = "updateReservation"
	ConfirmReservation = "confirmReservation"
	CancelReservation  = "cancelReservation"
	OrderStatus        = "orderStatus"
	Snapshot           = "snapshot"
)

// ReservationEvents lists the reservation lifecycle event names.
var ReservationEvents = []string{NewReservation, UpdateReservation, ConfirmReservation, CancelReservation}

// Event is a lifecycle notification carrying a full record.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// SnapshotFunc produces the payload pushed to an observer right after it connects.
type SnapshotFunc func(ctx context.Context) (any, error)

// observer is a streaming subscriber. Until its snapshot is sent it is not ready and live
// events are held in pending so none are lost between snapshot and first delivery.
type observer struct {
	ch      chan Event
	pending []Event
	ready   bool
}

// EventBus provides in-process pub/sub: named handlers registered with On, and streaming
// observers attached with Connect. Delivery is best effort with no replay.
type EventBus struct {
	subscribers map[string][]EventHandler
	observers   map[string]*observer
	snapshot    SnapshotFunc
	buffer      int
	logger      *zerolog.Logger
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus. buffer sizes each observer's queue.
func NewEventBus(buffer int, logger *zerolog.Logger) *EventBus {
	if buffer <= 0 {
		buffer = 32
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
		observers:   make(map[string]*observer),
		buffer:      buffer,
		logger:      logger,
	}
}

// SetSnapshot configures the payload sent to observers on connect.
func (b *EventBus) SetSnapshot(fn SnapshotFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = fn
}

// On registers a handler for a given event type.
func (b *EventBus) On(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Emit publishes payload under eventType.
func (b *EventBus) Emit(eventType string, payload any) {
	b.Publish(Event{Type: eventType, Payload: payload})
}

// Publish notifies handlers of the event type, then every connected observer.
// A full observer queue drops the event for that observer only.
func (b *EventBus) Publish(event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	b.mu.Lock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	for id, o := range b.observers {
		if !o.ready {
			if len(o.pending) < b.buffer {
				o.pending = append(o.pending, event)
				continue
			}
			b.dropped(id, event)
			continue
		}
		select {
		case o.ch <- event:
		default:
			b.dropped(id, event)
		}
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

func (b *EventBus) dropped(id string, event Event) {
	metrics.IncEventDropped()
	b.logger.Debug().Str("observer", id).Str("event", event.Type).Msg("observer queue full, event dropped")
}

// Connect attaches an observer. The returned channel first yields a Snapshot event when a
// snapshot func is configured, then live events. The observer is registered before the
// snapshot is taken, so an event published meanwhile is delivered right after the snapshot
// and may also be reflected in it. The observer is detached when ctx ends or the returned
// func is called; the channel is closed afterwards.
func (b *EventBus) Connect(ctx context.Context) (<-chan Event, func(), error) {
	id := uuid.NewString()
	ch := make(chan Event, b.buffer+1)

	b.mu.Lock()
	snapshotFn := b.snapshot
	o := &observer{ch: ch, ready: snapshotFn == nil}
	b.observers[id] = o
	b.mu.Unlock()

	if snapshotFn != nil {
		payload, err := snapshotFn(ctx)
		if err != nil {
			b.mu.Lock()
			delete(b.observers, id)
			b.mu.Unlock()
			return nil, nil, err
		}

		b.mu.Lock()
		// ch is empty and pending never exceeds buffer, so these sends cannot block.
		ch <- Event{Type: Snapshot, Payload: payload, CreatedAt: time.Now()}
		for _, event := range o.pending {
			ch <- event
		}
		o.pending = nil
		o.ready = true
		b.mu.Unlock()
	}

	metrics.ObserverConnected()
	b.logger.Debug().Str("observer", id).Msg("observer connected")

	var once sync.Once
	done := make(chan struct{})
	disconnect := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.observers, id)
			close(ch)
			b.mu.Unlock()
			close(done)
			metrics.ObserverDisconnected()
			b.logger.Debug().Str("observer", id).Msg("observer disconnected")
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			disconnect()
		case <-done:
		}
	}()

	return ch, disconnect, nil
}

// Observers returns the number of connected observers.
func (b *EventBus) Observers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}
