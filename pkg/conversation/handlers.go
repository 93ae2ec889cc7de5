package conversation

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
)

func session(sess *scheduler.Session) *Engine {
	return sess.Ent.(*Engine)
}

// handleCreateMain implements conversation.main.create: returns the
// document's existing main conversation if one already exists (scoped to
// the connection for demo documents), otherwise creates one anchored to
// chunk 0 with a freshly composed system message.
func (e *Engine) handleCreateMain(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	documentID := ev.DocumentID
	isDemo := eng.examples.IsExample(documentID)

	existing, err := eng.conversations.FindExistingMain(ctx, documentID, isDemo, ev.ConnectionID)
	if err != nil {
		eng.emitError("conversation.main.create", ev, err)
		return err
	}
	if existing != nil {
		eng.emit(models.Event{
			Type: "conversation.main.create.completed", DocumentID: documentID,
			ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
			Data: map[string]any{"conversation_id": existing.ID},
		})
		return nil
	}

	firstChunk, err := eng.chunks.First(ctx, documentID)
	if err != nil {
		eng.emitError("conversation.main.create", ev, fmt.Errorf("load first chunk: %w", err))
		return err
	}

	meta := models.ConversationMeta{}
	if isDemo {
		meta.ConnectionID = ev.ConnectionID
	}
	originChunk := "0"
	conv, err := eng.conversations.Create(ctx, serviceCreateParams(documentID, models.ConversationMain, &originChunk, meta, isDemo))
	if err != nil {
		eng.emitError("conversation.main.create", ev, err)
		return err
	}

	systemPrompt := eng.composer.System(models.ConversationMain, models.ContextWindowed, firstChunk.Content, "")
	if _, err := eng.messages.Create(ctx, conv.ID, models.RoleSystem, systemPrompt, originChunk, nil); err != nil {
		eng.emitError("conversation.main.create", ev, err)
		return err
	}

	eng.emit(models.Event{
		Type: "conversation.main.create.completed", DocumentID: documentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"conversation_id": conv.ID},
	})
	return nil
}

// handleCreateChunk implements conversation.chunk.create: creates a new
// highlight conversation anchored to a chunk and text range, then kicks
// off the first round of suggested questions for it.
func (e *Engine) handleCreateChunk(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	documentID := ev.DocumentID
	isDemo := eng.examples.IsExample(documentID)

	chunkID, _ := ev.Data.(map[string]any)["chunk_id"].(string)
	highlightText, _ := ev.Data.(map[string]any)["highlight_text"].(string)
	highlightRange, _ := ev.Data.(map[string]any)["highlight_range"].(string)

	chunk, err := eng.chunks.Get(ctx, documentID, chunkID)
	if err != nil {
		eng.emitError("conversation.chunk.create", ev, fmt.Errorf("load chunk: %w", err))
		return err
	}

	meta := models.ConversationMeta{HighlightText: highlightText, HighlightRange: highlightRange}
	if isDemo {
		meta.ConnectionID = ev.ConnectionID
	}
	conv, err := eng.conversations.Create(ctx, serviceCreateParams(documentID, models.ConversationHighlight, &chunkID, meta, isDemo))
	if err != nil {
		eng.emitError("conversation.chunk.create", ev, err)
		return err
	}

	systemPrompt := eng.composer.System(models.ConversationHighlight, models.ContextWindowed, chunk.Content, highlightText)
	if _, err := eng.messages.Create(ctx, conv.ID, models.RoleSystem, systemPrompt, chunkID, nil); err != nil {
		eng.emitError("conversation.chunk.create", ev, err)
		return err
	}

	if _, err := eng.generateQuestions(ctx, conv, chunk.Content, highlightText, chunkID, ev.RequestID+"_questions", ev.ConnectionID, true); err != nil {
		// Question generation failing doesn't fail the conversation creation —
		// it was emitted (or attempted) as its own event above.
	}

	eng.emit(models.Event{
		Type: "conversation.chunk.create.completed", DocumentID: documentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"conversation_id": conv.ID},
	})
	return nil
}

// handleListConversations implements conversation.list: every conversation
// anchored to the document, scoped to the connection for demo documents
// (§4.8).
func (e *Engine) handleListConversations(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	isDemo := eng.examples.IsExample(ev.DocumentID)

	convs, err := eng.conversations.List(ctx, ev.DocumentID, isDemo, ev.ConnectionID)
	if err != nil {
		eng.emitError("conversation.list", ev, err)
		return err
	}

	out := make(map[string]any, len(convs))
	for _, c := range convs {
		out[c.ID] = conversationSummary(c)
	}
	eng.emit(models.Event{
		Type: "conversation.list.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"conversations": out},
	})
	return nil
}

// handleGetConversationsByChunk implements conversation.chunk.get: every
// conversation anchored to a specific chunk sequence, keyed by id.
func (e *Engine) handleGetConversationsByChunk(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	chunkID, _ := ev.Data.(map[string]any)["chunk_id"].(string)

	convs, err := eng.conversations.ByChunkSequence(ctx, ev.DocumentID, chunkID)
	if err != nil {
		eng.emitError("conversation.chunk.get", ev, err)
		return err
	}

	out := make(map[string]any, len(convs))
	for _, c := range convs {
		out[c.ID] = conversationSummary(c)
	}
	eng.emit(models.Event{
		Type: "conversation.chunk.get.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"conversations": out},
	})
	return nil
}

// handleListMessages implements conversation.messages: every message
// of a conversation, in order.
func (e *Engine) handleListMessages(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	conversationID, _ := ev.Data.(map[string]any)["conversation_id"].(string)

	msgs, err := eng.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		eng.emitError("conversation.messages", ev, err)
		return err
	}

	list := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		list[i] = map[string]any{
			"id": m.ID, "role": string(m.Role), "content": m.Content,
			"created_at": m.CreatedAt, "conversation_id": m.ConversationID,
		}
	}
	eng.emit(models.Event{
		Type: "conversation.messages.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"conversation_id": conversationID, "messages": list},
	})
	return nil
}

// conversationSummary renders the listing shape conversation.list and
// conversation.chunk.get share: everything a client needs to render a
// conversation entry without fetching its full message history.
func conversationSummary(c *ent.Conversation) map[string]any {
	meta := metaToConversationMeta(c.Metadata)
	out := map[string]any{
		"document_id": c.DocumentID,
		"chunk_id":    derefOr(c.OriginChunkID, ""),
		"created_at":  c.CreatedAt,
		"highlight_text": meta.HighlightText,
	}
	if meta.HighlightRange != "" {
		out["highlight_range"] = meta.HighlightRange
	}
	return out
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func metaToConversationMeta(raw map[string]interface{}) models.ConversationMeta {
	var m models.ConversationMeta
	if v, ok := raw["connection_id"].(string); ok {
		m.ConnectionID = v
	}
	if v, ok := raw["highlight_range"].(string); ok {
		m.HighlightRange = v
	}
	if v, ok := raw["highlight_text"].(string); ok {
		m.HighlightText = v
	}
	if v, ok := raw["seen_chunks"].([]interface{}); ok {
		for _, s := range v {
			if str, ok := s.(string); ok {
				m.SeenChunks = append(m.SeenChunks, str)
			}
		}
	}
	return m
}
