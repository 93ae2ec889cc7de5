// Package document implements the Document View Engine (§4.6): the four
// read-side request/response pairs a connected client uses to browse a
// document's chunks independent of any conversation — list chunks, fetch
// metadata, navigate by index, and acknowledge processing status.
package document

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/docuchat/pkg/events"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

// Engine owns every document.* event handler. Like the Conversation
// Engine, it implements scheduler.SessionOpener directly since the
// generated Ent client needs no per-task session of its own.
type Engine struct {
	documents *services.DocumentService
	chunks    *services.DocumentChunkService
	bus       *events.Bus
	scheduler *scheduler.Scheduler
}

// New creates a Document View Engine.
func New(documents *services.DocumentService, chunks *services.DocumentChunkService, bus *events.Bus, sched *scheduler.Scheduler) *Engine {
	return &Engine{documents: documents, chunks: chunks, bus: bus, scheduler: sched}
}

// Open satisfies scheduler.SessionOpener.
func (e *Engine) Open(ctx context.Context) (*scheduler.Session, error) {
	return &scheduler.Session{Ent: e, Closer: func() error { return nil }}, nil
}

// Register installs every document.* handler onto bus. Each handler opens
// its own scheduler task, per §4.6.
func (e *Engine) Register() {
	e.on("document.chunk.list.requested", e.handleListChunks)
	e.on("document.metadata.requested", e.handleGetMetadata)
	e.on("document.navigation.requested", e.handleNavigateChunks)
	e.on("document.processing.requested", e.handleProcessDocument)
}

func (e *Engine) on(eventType string, task scheduler.Task) {
	e.bus.On(eventType, func(ctx context.Context, ev models.Event) error {
		e.scheduler.Schedule(task, ev)
		return nil
	})
}

func (e *Engine) emit(ev models.Event) {
	if err := e.bus.Emit(ev); err != nil {
		slog.Error("document engine: emit failed", "type", ev.Type, "error", err)
	}
}

func (e *Engine) emitError(requestType string, ev models.Event, err error) {
	slog.Error("document engine: handler failed", "type", requestType, "error", err)
	e.emit(models.Event{
		Type:         requestType + ".error",
		DocumentID:   ev.DocumentID,
		ConnectionID: ev.ConnectionID,
		RequestID:    ev.RequestID,
		Data:         map[string]any{"error": err.Error()},
	})
}

func session(sess *scheduler.Session) *Engine {
	return sess.Ent.(*Engine)
}
