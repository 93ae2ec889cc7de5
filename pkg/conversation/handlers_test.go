package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/codeready-toolchain/docuchat/test/database"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/costguard"
	"github.com/codeready-toolchain/docuchat/pkg/events"
	"github.com/codeready-toolchain/docuchat/pkg/llm"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

func newTestConvEngine(t *testing.T) (*Engine, *events.Bus, *services.DocumentService) {
	t.Helper()
	db := testdb.NewTestClient(t)
	bus := events.NewBus(64)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	bus.Initialize(ctx)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })

	sched := scheduler.New(nil, &config.SchedulerConfig{TaskTimeout: 5 * time.Second, QueueCapacity: 16})
	users := services.NewUserService(db.Client)
	guard := costguard.New(users, &config.CostConfig{Limit: 1.0})

	e := New(db.Client, bus, sched, &llm.FakeClient{}, guard, nil, &config.LLMConfig{}, config.ExampleDocumentSet{})
	return e, bus, services.NewDocumentService(db.Client)
}

func TestEngine_HandleCreateMainCreatesConversationWithSystemMessage(t *testing.T) {
	e, bus, docs := newTestConvEngine(t)
	ctx := context.Background()

	_, err := docs.Create(ctx, "doc-1", nil, "title")
	require.NoError(t, err)
	require.NoError(t, e.chunks.CreateAll(ctx, "doc-1", []string{"chunk zero content"}))

	resultCh := make(chan models.Event, 1)
	bus.On("conversation.main.create.completed", func(ctx context.Context, ev models.Event) error {
		resultCh <- ev
		return nil
	})

	sess := &scheduler.Session{Ent: e}
	require.NoError(t, e.handleCreateMain(ctx, sess, models.Event{DocumentID: "doc-1", ConnectionID: "conn-1"}))

	var convID string
	select {
	case ev := <-resultCh:
		convID = ev.Data.(map[string]any)["conversation_id"].(string)
		assert.NotEmpty(t, convID)
	case <-time.After(time.Second):
		t.Fatal("expected completed event")
	}

	msgs, err := e.messages.ListByConversation(ctx, convID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, string(models.RoleSystem), msgs[0].Role.String())
}

func TestEngine_HandleCreateMainReturnsExisting(t *testing.T) {
	e, bus, docs := newTestConvEngine(t)
	ctx := context.Background()

	_, err := docs.Create(ctx, "doc-1", nil, "title")
	require.NoError(t, err)
	require.NoError(t, e.chunks.CreateAll(ctx, "doc-1", []string{"chunk zero"}))

	firstCh := make(chan models.Event, 1)
	bus.On("conversation.main.create.completed", func(ctx context.Context, ev models.Event) error {
		select {
		case firstCh <- ev:
		default:
		}
		return nil
	})

	sess := &scheduler.Session{Ent: e}
	require.NoError(t, e.handleCreateMain(ctx, sess, models.Event{DocumentID: "doc-1", ConnectionID: "conn-1"}))
	var first models.Event
	select {
	case first = <-firstCh:
	case <-time.After(time.Second):
		t.Fatal("expected first completed event")
	}

	require.NoError(t, e.handleCreateMain(ctx, sess, models.Event{DocumentID: "doc-1", ConnectionID: "conn-1"}))
	var second models.Event
	select {
	case second = <-firstCh:
	case <-time.After(time.Second):
		t.Fatal("expected second completed event")
	}

	assert.Equal(t, first.Data.(map[string]any)["conversation_id"], second.Data.(map[string]any)["conversation_id"])
}

func TestEngine_HandleListConversations(t *testing.T) {
	e, bus, docs := newTestConvEngine(t)
	ctx := context.Background()

	_, err := docs.Create(ctx, "doc-1", nil, "title")
	require.NoError(t, err)
	chunk := "0"
	_, err = e.conversations.Create(ctx, services.CreateParams{
		ID: "conv-1", DocumentID: "doc-1", Kind: models.ConversationMain, OriginChunkID: &chunk,
	})
	require.NoError(t, err)

	resultCh := make(chan models.Event, 1)
	bus.On("conversation.list.completed", func(ctx context.Context, ev models.Event) error {
		resultCh <- ev
		return nil
	})

	sess := &scheduler.Session{Ent: e}
	require.NoError(t, e.handleListConversations(ctx, sess, models.Event{DocumentID: "doc-1"}))

	select {
	case ev := <-resultCh:
		convs := ev.Data.(map[string]any)["conversations"].(map[string]any)
		assert.Contains(t, convs, "conv-1")
	case <-time.After(time.Second):
		t.Fatal("expected completed event")
	}
}
