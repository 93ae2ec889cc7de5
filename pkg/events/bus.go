package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// Wildcard is the reserved subscription key that receives every event
// regardless of type. Used only by the Connection Registry's dispatch
// listener; ordinary handlers register on a concrete event type.
const Wildcard = "*"

// Handler processes a single event. A fault returned here is logged and
// does not interrupt sibling handlers or the dispatcher worker.
type Handler func(ctx context.Context, ev models.Event) error

// Bus is a single-process, ordered, asynchronous dispatcher of events.
// Exactly one dispatcher goroutine consumes an internal FIFO and invokes
// handlers for the event's type (plus any Wildcard handlers) in
// registration order, awaiting each in turn.
//
// There is no cross-event ordering between different types; within a
// single type, emission order equals delivery order.
type Bus struct {
	mu        sync.Mutex
	listeners map[string][]registeredHandler
	nextID    uint64

	queue    chan models.Event
	done     chan struct{}
	running  atomic.Bool
	shutdown context.CancelFunc
}

type registeredHandler struct {
	id      uint64
	handler Handler
}

// HandlerRef identifies a registered handler so it can later be passed to Off.
type HandlerRef struct {
	eventType string
	id        uint64
}

// NewBus creates an Event Bus with the given FIFO high-water mark. Emits
// beyond this capacity fail fast with a BUS_OVERFLOW error rather than
// blocking the caller.
func NewBus(highWaterMark int) *Bus {
	if highWaterMark <= 0 {
		highWaterMark = 4096
	}
	return &Bus{
		listeners: make(map[string][]registeredHandler),
		queue:     make(chan models.Event, highWaterMark),
	}
}

// On registers a handler for an event type (or Wildcard for all events).
// Registration order within a type is preserved.
func (b *Bus) On(eventType string, h Handler) HandlerRef {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[eventType] = append(b.listeners[eventType], registeredHandler{id: id, handler: h})
	return HandlerRef{eventType: eventType, id: id}
}

// Off unregisters a previously registered handler.
func (b *Bus) Off(ref HandlerRef) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.listeners[ref.eventType]
	for i, rh := range handlers {
		if rh.id == ref.id {
			b.listeners[ref.eventType] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// Emit enqueues an event for asynchronous delivery and returns immediately.
// Returns a BUS_OVERFLOW error if the FIFO is at its high-water mark.
func (b *Bus) Emit(ev models.Event) error {
	select {
	case b.queue <- ev:
		return nil
	default:
		return &models.Error{
			Kind:    models.ErrKindBusOverflow,
			Message: fmt.Sprintf("event bus saturated, dropping event type %q", ev.Type),
		}
	}
}

// Initialize starts the single dispatcher worker. Safe to call once; a
// second call is a no-op.
func (b *Bus) Initialize(ctx context.Context) {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.shutdown = cancel
	b.done = make(chan struct{})
	go b.run(runCtx)
}

// Shutdown stops the dispatcher worker and waits for it to drain in-flight
// handler invocations.
func (b *Bus) Shutdown(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	b.shutdown()
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.queue:
			b.dispatch(ctx, ev)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, ev models.Event) {
	b.mu.Lock()
	handlers := make([]registeredHandler, 0, len(b.listeners[ev.Type])+len(b.listeners[Wildcard]))
	handlers = append(handlers, b.listeners[ev.Type]...)
	handlers = append(handlers, b.listeners[Wildcard]...)
	b.mu.Unlock()

	for _, rh := range handlers {
		if err := rh.handler(ctx, ev); err != nil {
			slog.Error("event handler fault", "event_type", ev.Type, "document_id", ev.DocumentID, "error", err)
		}
	}
}
