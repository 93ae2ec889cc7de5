package conversation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/pkg/llm"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

// handleSendMessage implements message.send (§4.5): persists the user's
// message, assembles the LLM context for the conversation's kind and
// requested mode, invokes the LLM collaborator, persists the response,
// and settles any suggested question the message answered.
func (e *Engine) handleSendMessage(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	data, _ := ev.Data.(map[string]any)
	conversationID, _ := data["conversation_id"].(string)
	content, _ := data["content"].(string)
	chunkID, _ := data["chunk_id"].(string)
	useFullContext, _ := data["use_full_context"].(bool)
	questionID, _ := data["question_id"].(string)
	userID, _ := data["user_id"].(string)
	conversationType, _ := data["conversation_type"].(string)

	if conversationType == "" {
		err := services.NewValidationError("conversation_type", "Missing required field: conversation_type")
		eng.emitError("conversation.message.send", ev, err)
		return err
	}
	if conversationType == string(models.ConversationMain) && chunkID == "" {
		err := services.NewValidationError("chunk_id", "Missing required field: chunk_id (required for main conversations)")
		eng.emitError("conversation.message.send", ev, err)
		return err
	}

	release := eng.locks.acquire(conversationID)
	defer release()

	if err := eng.guard.Check(ctx, userID); err != nil {
		eng.notifier.NotifyLimitExceeded(ctx, userID, err)
		eng.emitErrorTyped("conversation.message.send", ev, err)
		return err
	}

	conv, err := eng.conversations.Get(ctx, conversationID)
	if err != nil {
		eng.emitError("conversation.message.send", ev, err)
		return err
	}

	msgChunkID := chunkID
	if msgChunkID == "" {
		msgChunkID = derefOr(conv.OriginChunkID, "")
	}

	if _, err := eng.messages.Create(ctx, conv.ID, models.RoleUser, content, msgChunkID, nil); err != nil {
		eng.emitError("conversation.message.send", ev, err)
		return err
	}

	kind := models.ConversationKind(conv.Kind)
	meta := metaToConversationMeta(conv.Metadata)

	llmMessages, model, err := eng.assembleContext(ctx, conv, kind, meta, content, msgChunkID, useFullContext)
	if err != nil {
		eng.emitError("conversation.message.send", ev, err)
		return err
	}

	chunkStream, err := eng.llmClient.Generate(ctx, &llm.GenerateInput{
		ConversationID: conv.ID,
		Model:          model,
		Messages:       llmMessages,
	})
	if err != nil {
		eng.emitError("conversation.message.send", ev, err)
		return err
	}
	response, cost, err := eng.streamResponse(chunkStream, ev)
	if err != nil {
		eng.emitError("conversation.message.send", ev, err)
		return err
	}

	if _, err := eng.messages.Create(ctx, conv.ID, models.RoleAssistant, response, msgChunkID, nil); err != nil {
		eng.emitError("conversation.message.send", ev, err)
		return err
	}

	if userID != "" && cost > 0 {
		if err := eng.guard.RecordUsage(ctx, userID, cost); err != nil {
			eng.emitError("conversation.message.send", ev, fmt.Errorf("record usage: %w", err))
			return err
		}
	}

	if questionID != "" {
		_ = eng.questions.MarkAnswered(ctx, conversationID, questionID)
	}

	eng.emit(models.Event{
		Type: "conversation.message.send.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"message": response, "conversation_id": conv.ID, "cost": cost},
	})
	return nil
}

// assembleContext builds the LLM message list and selects the model, per
// conversation kind and ContextMode (§4.9's System/User operations,
// §4.5's full-context toggle).
func (e *Engine) assembleContext(ctx context.Context, conv *ent.Conversation, kind models.ConversationKind, meta models.ConversationMeta, userContent, chunkID string, useFullContext bool) ([]llm.Message, string, error) {
	model := e.llmCfg.ModelDefault
	mode := models.ContextWindowed
	if useFullContext {
		model = e.llmCfg.ModelFullContext
		mode = models.ContextFull
	}

	if useFullContext {
		fullText, err := e.chunks.AllText(ctx, conv.DocumentID)
		if err != nil {
			return nil, "", fmt.Errorf("load full document text: %w", err)
		}
		history, err := e.messages.ListByConversation(ctx, conv.ID)
		if err != nil {
			return nil, "", fmt.Errorf("load conversation history: %w", err)
		}
		systemPrompt := e.composer.System(kind, mode, fullText, meta.HighlightText)
		out := make([]llm.Message, 0, len(history)+2)
		out = append(out, llm.Message{Role: string(models.RoleSystem), Content: systemPrompt})
		for _, m := range history {
			out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
		}
		out = append(out, llm.Message{Role: string(models.RoleUser), Content: e.composer.User(kind, meta.HighlightText, userContent)})
		return out, model, nil
	}

	processedContent := e.composer.User(kind, meta.HighlightText, userContent)

	var msgs []llm.Message
	var err error
	if kind == models.ConversationHighlight {
		history, lerr := e.messages.ListByConversation(ctx, conv.ID)
		if lerr != nil {
			return nil, "", fmt.Errorf("load conversation history: %w", lerr)
		}
		msgs = make([]llm.Message, len(history))
		for i, m := range history {
			msgs[i] = llm.Message{Role: string(m.Role), Content: m.Content}
		}
	} else {
		msgs, err = e.composeChunkSwitchContext(ctx, conv.DocumentID, conv.ID)
		if err != nil {
			return nil, "", err
		}
	}

	if len(msgs) > 0 {
		msgs[len(msgs)-1].Content = processedContent
	}
	return msgs, model, nil
}

type chunkSwitch struct {
	processedIdx int
	currentSeq   int
	lastSeq      *int
}

// composeChunkSwitchContext renders a main conversation's message history
// with synthetic "<switched to chunk N>" / "<acknowledged...>" message
// pairs inserted wherever the chunk the user was viewing changed, and the
// actual chunk text folded into the most recent switch marker for each
// chunk. This mirrors the source's approach of letting the LLM see which
// chunk grounded which part of the conversation without resending every
// chunk's text on every turn.
func (e *Engine) composeChunkSwitchContext(ctx context.Context, documentID, conversationID string) ([]llm.Message, error) {
	history, err := e.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation history: %w", err)
	}

	type procMsg struct {
		role    string
		content string
	}
	var processed []procMsg
	var switches []chunkSwitch
	var lastSeq *int

	for _, m := range history {
		if m.Role == "system" {
			processed = append(processed, procMsg{role: string(m.Role), content: m.Content})
			continue
		}

		seq, ok := parseChunkSeq(m.ChunkContext)
		if ok && (lastSeq == nil || seq != *lastSeq) {
			isBackwards := lastSeq != nil && seq < *lastSeq

			var switchContent, ackContent string
			if isBackwards {
				switchContent = fmt.Sprintf("<switched to chunk ID %d>", seq)
				ackContent = fmt.Sprintf("<acknowledged switch to chunk %d>", seq)
			} else {
				rangeLabel := strconv.Itoa(seq)
				if lastSeq != nil {
					rangeLabel = fmt.Sprintf("%d-%d", *lastSeq, seq)
				}
				switchContent = fmt.Sprintf("<switched to chunks %s>", rangeLabel)
				ackContent = fmt.Sprintf("<acknowledged switch to chunks %s>", rangeLabel)
			}

			captured := lastSeq
			switches = append(switches, chunkSwitch{
				processedIdx: len(processed),
				currentSeq:   seq,
				lastSeq:      captured,
			})
			processed = append(processed, procMsg{role: string(models.RoleUser), content: switchContent})
			processed = append(processed, procMsg{role: string(models.RoleAssistant), content: ackContent})
		}

		processed = append(processed, procMsg{role: string(m.Role), content: m.Content})
		if ok {
			lastSeq = &seq
		}
	}

	seen := map[int]bool{}
	for i := len(switches) - 1; i >= 0; i-- {
		sw := switches[i]
		toAdd := map[int]bool{}
		switch {
		case sw.lastSeq == nil:
			for k := 0; k <= sw.currentSeq; k++ {
				toAdd[k] = true
			}
		case sw.currentSeq < *sw.lastSeq:
			toAdd[sw.currentSeq] = true
		default:
			for k := *sw.lastSeq; k <= sw.currentSeq; k++ {
				toAdd[k] = true
			}
		}

		var ordered []int
		for k := range toAdd {
			if !seen[k] {
				ordered = append(ordered, k)
			}
		}
		sort.Ints(ordered)
		if len(ordered) == 0 {
			continue
		}

		var parts []string
		for _, k := range ordered {
			chunk, err := e.chunks.Get(ctx, documentID, strconv.Itoa(k))
			if err != nil {
				continue
			}
			parts = append(parts, fmt.Sprintf("Chunk %d: %s", k, chunk.Content))
			seen[k] = true
		}
		if len(parts) > 0 {
			processed[sw.processedIdx].content += ", chunkText: " + strings.Join(parts, " | ")
		}
	}

	out := make([]llm.Message, len(processed))
	for i, p := range processed {
		out[i] = llm.Message{Role: p.role, Content: p.content}
	}
	return out, nil
}
