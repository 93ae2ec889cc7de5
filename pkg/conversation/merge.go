package conversation

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/docuchat/pkg/llm"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
)

// handleMergeConversations implements conversation.merge (§4.5): summarizes
// a highlight thread's discussion with the LLM and appends the summary
// (tagged merged_from) plus an acknowledgment message to the document's
// main conversation.
func (e *Engine) handleMergeConversations(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	data, _ := ev.Data.(map[string]any)
	mainConversationID, _ := data["main_conversation_id"].(string)
	highlightConversationID, _ := data["highlight_conversation_id"].(string)

	highlightConv, err := eng.conversations.Get(ctx, highlightConversationID)
	if err != nil {
		eng.emitError("conversation.merge", ev, err)
		return err
	}
	meta := metaToConversationMeta(highlightConv.Metadata)

	history, err := eng.messages.FormatHistory(ctx, highlightConversationID)
	if err != nil {
		eng.emitError("conversation.merge", ev, err)
		return err
	}

	summaryPrompt := eng.composer.Summary(meta.HighlightText, history)
	stream, err := eng.llmClient.Generate(ctx, &llm.GenerateInput{
		ConversationID: highlightConversationID,
		Model:          eng.llmCfg.ModelDefault,
		Messages: []llm.Message{
			{Role: string(models.RoleSystem), Content: summaryPrompt},
		},
	})
	if err != nil {
		eng.emitError("conversation.merge", ev, err)
		return err
	}
	summary, cost, err := collectResponse(stream)
	if err != nil {
		eng.emitError("conversation.merge", ev, err)
		return err
	}

	first, err := eng.messages.ListByConversation(ctx, highlightConversationID)
	if err != nil {
		eng.emitError("conversation.merge", ev, err)
		return err
	}
	chunkContext := ""
	if len(first) > 0 {
		chunkContext = first[0].ChunkContext
	}

	if _, err := eng.messages.Create(ctx, mainConversationID,
		models.RoleUser,
		fmt.Sprintf("Summary of highlight discussion:\n%s", summary),
		chunkContext,
		&models.MessageMeta{MergedFrom: highlightConversationID},
	); err != nil {
		eng.emitError("conversation.merge", ev, err)
		return err
	}
	if _, err := eng.messages.Create(ctx, mainConversationID, models.RoleAssistant, "Acknowledged conversation merge", chunkContext, nil); err != nil {
		eng.emitError("conversation.merge", ev, err)
		return err
	}

	eng.emit(models.Event{
		Type: "conversation.merge.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{
			"main_conversation_id":      mainConversationID,
			"highlight_conversation_id": highlightConversationID,
			"summary":                   summary,
			"cost":                      cost,
		},
	})
	return nil
}
