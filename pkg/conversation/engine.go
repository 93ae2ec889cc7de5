// Package conversation implements the Conversation Engine (§4.5): the
// handlers that create main/highlight conversation threads, assemble LLM
// context, send messages, manage suggested questions, and merge a
// highlight thread's discussion back into the document's main thread.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/costguard"
	"github.com/codeready-toolchain/docuchat/pkg/events"
	"github.com/codeready-toolchain/docuchat/pkg/llm"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/prompt"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
	"github.com/codeready-toolchain/docuchat/pkg/services"
	"github.com/google/uuid"
)

// Engine owns every conversation.* event handler (document.* handlers live
// in pkg/document) and the collaborators they need. It implements scheduler.SessionOpener itself:
// the generated Ent client is already a pooled, concurrency-safe handle,
// so "opening a session" here just hands the task its own reference to
// Engine rather than opening a fresh per-task database connection the way
// the system this core was distilled from does with SQLAlchemy.
type Engine struct {
	conversations *services.ConversationService
	messages      *services.MessageService
	questions     *services.QuestionService
	chunks        *services.DocumentChunkService
	users         *services.UserService
	documents     *services.DocumentService

	bus       *events.Bus
	scheduler *scheduler.Scheduler
	composer  *prompt.Composer
	llmClient llm.Client
	guard     *costguard.Guard
	notifier  *SlackNotifier
	llmCfg    *config.LLMConfig
	examples  config.ExampleDocumentSet

	// locks serializes message.send per conversation, per §9's resolution
	// of the "concurrent sends on one conversation" open question.
	locks *conversationLocks
}

// New creates a Conversation Engine wired to its collaborators.
func New(
	client *ent.Client,
	bus *events.Bus,
	sched *scheduler.Scheduler,
	llmClient llm.Client,
	guard *costguard.Guard,
	notifier *SlackNotifier,
	llmCfg *config.LLMConfig,
	examples config.ExampleDocumentSet,
) *Engine {
	return &Engine{
		conversations: services.NewConversationService(client),
		messages:      services.NewMessageService(client),
		questions:     services.NewQuestionService(client),
		chunks:        services.NewDocumentChunkService(client),
		users:         services.NewUserService(client),
		documents:     services.NewDocumentService(client),
		bus:           bus,
		scheduler:     sched,
		composer:      prompt.NewComposer(),
		llmClient:     llmClient,
		guard:         guard,
		notifier:      notifier,
		llmCfg:        llmCfg,
		examples:      examples,
		locks:         newConversationLocks(),
	}
}

// Open satisfies scheduler.SessionOpener.
func (e *Engine) Open(ctx context.Context) (*scheduler.Session, error) {
	return &scheduler.Session{Ent: e, Closer: func() error { return nil }}, nil
}

// Register installs every conversation.* handler onto bus, wrapped so each
// invocation runs as a scheduled task (§4.4: one task per inbound event,
// bounded by the shared deadline and graceful-shutdown machinery).
func (e *Engine) Register() {
	e.on("conversation.main.create.requested", e.handleCreateMain)
	e.on("conversation.chunk.create.requested", e.handleCreateChunk)
	e.on("conversation.message.send.requested", e.handleSendMessage)
	e.on("conversation.questions.generate.requested", e.handleGenerateQuestionsEvent)
	e.on("conversation.questions.regenerate.requested", e.handleRegenerateQuestions)
	e.on("conversation.questions.list.requested", e.handleListQuestions)
	e.on("conversation.merge.requested", e.handleMergeConversations)
	e.on("conversation.list.requested", e.handleListConversations)
	e.on("conversation.messages.requested", e.handleListMessages)
	e.on("conversation.chunk.get.requested", e.handleGetConversationsByChunk)
}

func (e *Engine) on(eventType string, task scheduler.Task) {
	e.bus.On(eventType, func(ctx context.Context, ev models.Event) error {
		e.scheduler.Schedule(task, ev)
		return nil
	})
}

func (e *Engine) emit(ev models.Event) {
	if err := e.bus.Emit(ev); err != nil {
		slog.Error("conversation engine: emit failed", "type", ev.Type, "error", err)
	}
}

// emitErrorTyped emits the `.error` event carrying a typed *models.Error's
// kind and extra fields when err is one (e.g. COST_LIMIT_EXCEEDED), falling
// back to the plain-message shape otherwise.
func (e *Engine) emitErrorTyped(requestType string, ev models.Event, err error) {
	var apiErr *models.Error
	if errors.As(err, &apiErr) {
		slog.Warn("conversation engine: request rejected", "type", requestType, "kind", apiErr.Kind)
		e.emit(models.Event{
			Type:         requestType + ".error",
			DocumentID:   ev.DocumentID,
			ConnectionID: ev.ConnectionID,
			RequestID:    ev.RequestID,
			Data:         apiErr,
		})
		return
	}
	e.emitError(requestType, ev, err)
}

func (e *Engine) emitError(requestType string, ev models.Event, err error) {
	slog.Error("conversation engine: handler failed", "type", requestType, "error", err)
	e.emit(models.Event{
		Type:         requestType + ".error",
		DocumentID:   ev.DocumentID,
		ConnectionID: ev.ConnectionID,
		RequestID:    ev.RequestID,
		Data:         map[string]any{"error": err.Error()},
	})
}

func newID() string { return uuid.New().String() }

func serviceCreateParams(documentID string, kind models.ConversationKind, originChunkID *string, meta models.ConversationMeta, isDemo bool) services.CreateParams {
	return services.CreateParams{
		ID:            newID(),
		DocumentID:    documentID,
		Kind:          kind,
		OriginChunkID: originChunkID,
		Meta:          meta,
		IsDemo:        isDemo,
	}
}

// generateQuestionCount is the fixed suggested-question batch size, §4.5.
const generateQuestionCount = 3

// collectResponse drains an llm.Client's Chunk stream into a single
// response string and total cost, surfacing the first ErrorChunk (if any)
// as a Go error.
func collectResponse(ch <-chan llm.Chunk) (string, float64, error) {
	var text string
	var cost float64
	for c := range ch {
		switch v := c.(type) {
		case *llm.TextChunk:
			text += v.Content
		case *llm.CostChunk:
			cost += v.USD
		case *llm.ErrorChunk:
			return "", 0, fmt.Errorf("llm collaborator: %s", v.Message)
		}
	}
	return text, cost, nil
}

// streamResponse drains an llm.Client's Chunk stream the way
// message.send requires (§4.5.2 step 4): every TextChunk is forwarded to
// the originating connection as a chat.token event as it arrives, and once
// the stream closes a single chat.completed event carries the full text.
func (e *Engine) streamResponse(ch <-chan llm.Chunk, ev models.Event) (string, float64, error) {
	var text string
	var cost float64
	for c := range ch {
		switch v := c.(type) {
		case *llm.TextChunk:
			text += v.Content
			e.emit(models.Event{
				Type: "chat.token", DocumentID: ev.DocumentID,
				ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
				Data: map[string]any{"token": v.Content},
			})
		case *llm.CostChunk:
			cost += v.USD
		case *llm.ErrorChunk:
			return "", 0, fmt.Errorf("llm collaborator: %s", v.Message)
		}
	}
	e.emit(models.Event{
		Type: "chat.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"message": text},
	})
	return text, cost, nil
}

func parseChunkSeq(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// conversationLocks hands out a per-conversation mutex so two concurrent
// message.send requests on the same conversation serialize (§9 decision);
// requests on different conversations proceed concurrently through the
// scheduler regardless.
type conversationLocks struct {
	mu    chanMutex
	locks map[string]*chanMutex
}

type chanMutex chan struct{}

func (m chanMutex) Lock()   { m <- struct{}{} }
func (m chanMutex) Unlock() { <-m }

func newConversationLocks() *conversationLocks {
	return &conversationLocks{
		mu:    make(chanMutex, 1),
		locks: make(map[string]*chanMutex),
	}
}

func (l *conversationLocks) acquire(conversationID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[conversationID]
	if !ok {
		nl := make(chanMutex, 1)
		lock = &nl
		l.locks[conversationID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
