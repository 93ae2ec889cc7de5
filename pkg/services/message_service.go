package services

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/ent/message"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/google/uuid"
)

// MessageService is the ent-backed CRUD wrapper over a conversation's
// message history.
type MessageService struct {
	client *ent.Client
}

// NewMessageService creates a new MessageService.
func NewMessageService(client *ent.Client) *MessageService {
	return &MessageService{client: client}
}

// Create appends a message to conversationID. chunkContext records the
// chunk sequence the client was viewing when the message was sent (used
// by the chunk-switch compression pass); meta is optional.
func (s *MessageService) Create(ctx context.Context, conversationID string, role models.Role, content, chunkContext string, meta *models.MessageMeta) (*ent.Message, error) {
	if content == "" {
		return nil, NewValidationError("content", "required")
	}

	create := s.client.Message.Create().
		SetID(uuid.New().String()).
		SetConversationID(conversationID).
		SetRole(message.Role(role)).
		SetContent(content)
	if chunkContext != "" {
		create = create.SetChunkContext(chunkContext)
	}
	if meta != nil {
		create = create.SetMetadata(map[string]interface{}{"merged_from": meta.MergedFrom})
	}

	msg, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// ListByConversation loads every message of conversationID, ordered by
// creation time.
func (s *MessageService) ListByConversation(ctx context.Context, conversationID string) ([]*ent.Message, error) {
	msgs, err := s.client.Message.Query().
		Where(message.ConversationIDEQ(conversationID)).
		Order(ent.Asc(message.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Latest loads the most recently created message of conversationID, or nil
// if the conversation has none yet.
func (s *MessageService) Latest(ctx context.Context, conversationID string) (*ent.Message, error) {
	msg, err := s.client.Message.Query().
		Where(message.ConversationIDEQ(conversationID)).
		Order(ent.Desc(message.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest message: %w", err)
	}
	return msg, nil
}

// FormatHistory renders conversationID's messages as "ROLE: content" lines,
// for inclusion in the summary prompt when merging a highlight thread.
func (s *MessageService) FormatHistory(ctx context.Context, conversationID string) (string, error) {
	msgs, err := s.ListByConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}
	out := ""
	for i, m := range msgs {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("%s: %s", string(m.Role), m.Content)
	}
	return out, nil
}
