package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/pkg/llm"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
)

// handleGenerateQuestionsEvent implements questions.generate as a
// standalone bus request (as opposed to the internal call
// handleCreateChunk makes when seeding a brand-new highlight thread).
func (e *Engine) handleGenerateQuestionsEvent(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	data, _ := ev.Data.(map[string]any)
	conversationID, _ := data["conversation_id"].(string)
	chunkID, _ := data["chunk_id"].(string)
	userID, _ := data["user_id"].(string)

	if err := eng.guard.Check(ctx, userID); err != nil {
		eng.notifier.NotifyLimitExceeded(ctx, userID, err)
		eng.emitErrorTyped("conversation.questions.generate", ev, err)
		return err
	}

	conv, err := eng.conversations.Get(ctx, conversationID)
	if err != nil {
		eng.emitError("conversation.questions.generate", ev, err)
		return err
	}
	chunk, err := eng.chunks.Get(ctx, ev.DocumentID, chunkID)
	if err != nil {
		eng.emitError("conversation.questions.generate", ev, err)
		return err
	}
	meta := metaToConversationMeta(conv.Metadata)

	if _, err := eng.generateQuestions(ctx, conv, chunk.Content, meta.HighlightText, chunkID, ev.RequestID, ev.ConnectionID, true); err != nil {
		eng.emitError("conversation.questions.generate", ev, err)
		return err
	}
	return nil
}

// generateQuestions is the shared question-generation path: it loads
// previously-asked questions for this (conversation, chunk) pair so the
// prompt can ask the LLM to avoid repeats, invokes the LLM, persists the
// results, and optionally emits the completion event (emitEvent is false
// when regeneration calls this as an internal step, matching §4.5's
// "regeneration calls generation without a duplicate completion event").
func (e *Engine) generateQuestions(ctx context.Context, conv *ent.Conversation, chunkOrHighlightText, highlightText, chunkID, requestID, connectionID string, emitEvent bool) ([]string, error) {
	kind := models.ConversationKind(conv.Kind)

	previous, err := e.questions.ListPreviousContent(ctx, conv.ID, chunkID)
	if err != nil {
		return nil, fmt.Errorf("load previous questions: %w", err)
	}

	text := chunkOrHighlightText
	if kind == models.ConversationHighlight {
		text = highlightText
	}
	prompt := e.composer.Question(kind, generateQuestionCount, previous, text)

	stream, err := e.llmClient.Generate(ctx, &llm.GenerateInput{
		ConversationID: conv.ID,
		Model:          e.llmCfg.ModelDefault,
		Messages: []llm.Message{
			{Role: string(models.RoleSystem), Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	raw, cost, err := collectResponse(stream)
	if err != nil {
		return nil, err
	}

	questionTexts := splitQuestions(raw, generateQuestionCount)
	created, err := e.questions.CreateAll(ctx, conv.ID, chunkID, questionTexts)
	if err != nil {
		return nil, fmt.Errorf("persist questions: %w", err)
	}
	out := make([]string, len(created))
	for i, q := range created {
		out[i] = q.Content
	}

	if emitEvent {
		e.emit(models.Event{
			Type: "conversation.questions.generate.completed", DocumentID: conv.DocumentID,
			ConnectionID: connectionID, RequestID: requestID,
			Data: map[string]any{"conversation_id": conv.ID, "questions": out, "cost": cost},
		})
	}
	return out, nil
}

// handleRegenerateQuestions implements questions.regenerate: marks every
// existing question of the conversation answered, then runs question
// generation again without emitting its own completion event.
func (e *Engine) handleRegenerateQuestions(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	data, _ := ev.Data.(map[string]any)
	conversationID, _ := data["conversation_id"].(string)
	chunkID, _ := data["chunk_id"].(string)

	if err := eng.questions.MarkAllAnswered(ctx, conversationID); err != nil {
		eng.emitError("conversation.questions.regenerate", ev, err)
		return err
	}

	conv, err := eng.conversations.Get(ctx, conversationID)
	if err != nil {
		eng.emitError("conversation.questions.regenerate", ev, err)
		return err
	}
	meta := metaToConversationMeta(conv.Metadata)
	chunkText := ""
	if models.ConversationKind(conv.Kind) != models.ConversationHighlight {
		chunk, cErr := eng.chunks.Get(ctx, ev.DocumentID, chunkID)
		if cErr != nil {
			eng.emitError("conversation.questions.regenerate", ev, cErr)
			return cErr
		}
		chunkText = chunk.Content
	}

	questions, err := eng.generateQuestions(ctx, conv, chunkText, meta.HighlightText, chunkID, ev.RequestID, ev.ConnectionID, false)
	if err != nil {
		eng.emitError("conversation.questions.regenerate", ev, err)
		return err
	}

	eng.emit(models.Event{
		Type: "conversation.questions.regenerate.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"conversation_id": conversationID, "questions": questions},
	})
	return nil
}

// handleListQuestions implements questions.list: generates a fresh batch
// the first time a chunk is viewed in this conversation (tracked via
// seen_chunks in the conversation's metadata), then returns the
// unanswered question list for that chunk.
func (e *Engine) handleListQuestions(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	data, _ := ev.Data.(map[string]any)
	conversationID, _ := data["conversation_id"].(string)
	chunkID, _ := data["chunk_id"].(string)

	conv, err := eng.conversations.Get(ctx, conversationID)
	if err != nil {
		eng.emitError("conversation.questions.list", ev, err)
		return err
	}
	meta := metaToConversationMeta(conv.Metadata)

	if !meta.HasSeenChunk(chunkID) {
		meta.MarkChunkSeen(chunkID)
		if err := eng.conversations.UpdateMeta(ctx, conversationID, meta); err != nil {
			eng.emitError("conversation.questions.list", ev, err)
			return err
		}

		chunkText := ""
		if models.ConversationKind(conv.Kind) != models.ConversationHighlight {
			chunk, cErr := eng.chunks.Get(ctx, ev.DocumentID, chunkID)
			if cErr != nil {
				eng.emitError("conversation.questions.list", ev, cErr)
				return cErr
			}
			chunkText = chunk.Content
		}
		if _, gErr := eng.generateQuestions(ctx, conv, chunkText, meta.HighlightText, chunkID, ev.RequestID, ev.ConnectionID, true); gErr != nil {
			eng.emitError("conversation.questions.list", ev, gErr)
			return gErr
		}
	}

	unanswered, err := eng.questions.ListUnanswered(ctx, conversationID, chunkID)
	if err != nil {
		eng.emitError("conversation.questions.list", ev, err)
		return err
	}
	out := make([]map[string]any, len(unanswered))
	for i, q := range unanswered {
		out[i] = map[string]any{"id": q.ID, "content": q.Content, "answered": q.Answered}
	}

	eng.emit(models.Event{
		Type: "conversation.questions.list.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"conversation_id": conversationID, "chunk_id": chunkID, "questions": out},
	})
	return nil
}

// splitQuestions turns the LLM's raw newline-separated response into at
// most limit trimmed, non-blank question strings.
func splitQuestions(raw string, limit int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789-.*) ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) >= limit {
			break
		}
	}
	return out
}
