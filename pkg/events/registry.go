package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// Socket is the minimal send surface the Connection Registry needs from a
// transport connection. The concrete coder/websocket connection is owned by
// the session handler that called Connect; the registry never touches it
// directly, it only tracks bookkeeping and hands events back through Next.
type Socket interface {
	// RemoteAddr is used for logging only.
	RemoteAddr() string
}

// connection is a single registered WebSocket session: its scope, its
// subscribed event-type filter, and a bounded outbound queue. Unlike the
// teacher's Connection (owned by a single read-loop goroutine with an
// unlocked subscriptions map), this filter is read and written from
// multiple goroutines (the session's subscribe handler and the Bus's
// dispatch worker), so it is guarded by its own mutex.
type connection struct {
	id         string
	documentID string
	scope      models.ConnectionScope
	socket     Socket

	mu     sync.RWMutex
	filter map[string]bool

	queue  chan models.Event
	closed chan struct{}
	once   sync.Once
}

func (c *connection) subscribed(eventType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter[eventType]
}

func (c *connection) subscribe(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter[eventType] = true
}

func (c *connection) close() {
	c.once.Do(func() { close(c.closed) })
}

// Registry holds all live WebSocket sessions, their scope, their subscribed
// event-type set, and a bounded per-connection outbound queue. It installs
// itself as a Wildcard listener on a Bus so every emitted event passes
// through dispatch for connection_id-addressed fan-out.
type Registry struct {
	queueCapacity int
	putTimeout    time.Duration

	mu          sync.RWMutex
	connections map[string]*connection                    // connID -> connection
	byDocument  map[string]map[string]bool                 // documentID -> set of connID
	byScope     map[models.ConnectionScope]map[string]bool // scope -> set of connID, for bookkeeping/metrics
}

// NewRegistry creates a Connection Registry with the given per-connection
// outbound queue capacity and enqueue put-timeout.
func NewRegistry(queueCapacity int, putTimeout time.Duration) *Registry {
	if queueCapacity <= 0 {
		queueCapacity = 256
	}
	if putTimeout <= 0 {
		putTimeout = time.Second
	}
	return &Registry{
		queueCapacity: queueCapacity,
		putTimeout:    putTimeout,
		connections:   make(map[string]*connection),
		byDocument:    make(map[string]map[string]bool),
		byScope:       make(map[models.ConnectionScope]map[string]bool),
	}
}

// Attach installs the registry as a Wildcard listener on the given bus. It
// should be called once, typically by the composition root right after both
// the Bus and Registry are constructed.
func (r *Registry) Attach(b *Bus) HandlerRef {
	return b.On(Wildcard, func(ctx context.Context, ev models.Event) error {
		r.dispatch(ev)
		return nil
	})
}

// Connect registers a new connection, indexed by (document_id, scope,
// conn_id), with an outbound queue of the registry's configured capacity.
func (r *Registry) Connect(connID, documentID string, scope models.ConnectionScope, socket Socket) {
	c := &connection{
		id:         connID,
		documentID: documentID,
		scope:      scope,
		socket:     socket,
		filter:     make(map[string]bool),
		queue:      make(chan models.Event, r.queueCapacity),
		closed:     make(chan struct{}),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.connections[connID] = c
	if r.byDocument[documentID] == nil {
		r.byDocument[documentID] = make(map[string]bool)
	}
	r.byDocument[documentID][connID] = true
	if r.byScope[scope] == nil {
		r.byScope[scope] = make(map[string]bool)
	}
	r.byScope[scope][connID] = true
}

// Subscribe adds an event type to the connection's filter.
func (r *Registry) Subscribe(connID, eventType string) {
	r.mu.RLock()
	c, ok := r.connections[connID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	c.subscribe(eventType)
}

// dispatch is the Bus wildcard listener: it is invoked for every event
// emitted on the bus and fans it out to the originating connection only, if
// that connection is still registered and subscribed to the event's type.
func (r *Registry) dispatch(ev models.Event) {
	if ev.DocumentID == "" || ev.ConnectionID == "" {
		return
	}

	r.mu.RLock()
	ids, hasSessions := r.byDocument[ev.DocumentID]
	var c *connection
	if hasSessions && ids[ev.ConnectionID] {
		c = r.connections[ev.ConnectionID]
	}
	r.mu.RUnlock()

	if c == nil || !c.subscribed(ev.Type) {
		return
	}

	timer := time.NewTimer(r.putTimeout)
	defer timer.Stop()

	select {
	case c.queue <- ev:
	case <-c.closed:
	case <-timer.C:
		slog.Warn("connection outbound queue full, dropping event",
			"connection_id", c.id, "document_id", c.documentID, "event_type", ev.Type,
			"error_kind", models.ErrKindQueueFull)
	}
}

// Next blocks until the next event is available for the connection, the
// connection is disconnected, or ctx is done.
func (r *Registry) Next(ctx context.Context, connID string) (models.Event, bool) {
	r.mu.RLock()
	c, ok := r.connections[connID]
	r.mu.RUnlock()
	if !ok {
		return models.Event{}, false
	}

	select {
	case ev := <-c.queue:
		return ev, true
	case <-c.closed:
		return models.Event{}, false
	case <-ctx.Done():
		return models.Event{}, false
	}
}

// Disconnect removes a connection's indexes and releases its queue. Safe to
// call more than once for the same connID.
func (r *Registry) Disconnect(connID, documentID string, scope models.ConnectionScope) {
	r.mu.Lock()
	c, ok := r.connections[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.connections, connID)
	if ids := r.byDocument[documentID]; ids != nil {
		delete(ids, connID)
		if len(ids) == 0 {
			delete(r.byDocument, documentID)
		}
	}
	if ids := r.byScope[scope]; ids != nil {
		delete(ids, connID)
		if len(ids) == 0 {
			delete(r.byScope, scope)
		}
	}
	r.mu.Unlock()

	c.close()
}

// ActiveConnections returns the count of currently registered connections.
func (r *Registry) ActiveConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
