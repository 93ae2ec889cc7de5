package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/ent/question"
	"github.com/google/uuid"
)

// QuestionService is the ent-backed CRUD wrapper over a conversation's
// suggested-question list.
type QuestionService struct {
	client *ent.Client
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(client *ent.Client) *QuestionService {
	return &QuestionService{client: client}
}

// CreateAll persists contents as new, unanswered questions against
// conversationID, tagged with chunkID. Blank entries are skipped.
func (s *QuestionService) CreateAll(ctx context.Context, conversationID, chunkID string, contents []string) ([]*ent.Question, error) {
	builders := make([]*ent.QuestionCreate, 0, len(contents))
	for _, c := range contents {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		builders = append(builders, s.client.Question.Create().
			SetID(uuid.New().String()).
			SetConversationID(conversationID).
			SetChunkID(chunkID).
			SetContent(c).
			SetAnswered(false))
	}
	if len(builders) == 0 {
		return nil, nil
	}
	created, err := s.client.Question.CreateBulk(builders...).Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create questions: %w", err)
	}
	return created, nil
}

// ListUnanswered loads the unanswered questions of conversationID tagged
// with chunkID, ordered by creation time.
func (s *QuestionService) ListUnanswered(ctx context.Context, conversationID, chunkID string) ([]*ent.Question, error) {
	qs, err := s.client.Question.Query().
		Where(
			question.ConversationIDEQ(conversationID),
			question.ChunkIDEQ(chunkID),
			question.AnsweredEQ(false),
		).
		Order(ent.Asc(question.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unanswered questions: %w", err)
	}
	return qs, nil
}

// ListPreviousContent returns just the text of every question ever asked
// for conversationID tagged with chunkID (answered or not), for inclusion
// in the "don't repeat these" prompt context.
func (s *QuestionService) ListPreviousContent(ctx context.Context, conversationID, chunkID string) ([]string, error) {
	qs, err := s.client.Question.Query().
		Where(
			question.ConversationIDEQ(conversationID),
			question.ChunkIDEQ(chunkID),
		).
		Order(ent.Asc(question.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list previous questions: %w", err)
	}
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Content
	}
	return out, nil
}

// MarkAllAnswered marks every question of conversationID answered, used
// when regenerating the suggested-question list from scratch.
func (s *QuestionService) MarkAllAnswered(ctx context.Context, conversationID string) error {
	_, err := s.client.Question.Update().
		Where(question.ConversationIDEQ(conversationID)).
		SetAnswered(true).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("mark questions answered: %w", err)
	}
	return nil
}

// MarkAnswered marks a single question (by id, scoped to conversationID)
// answered, used when the user sends a message that originated from a
// suggested question.
func (s *QuestionService) MarkAnswered(ctx context.Context, conversationID, questionID string) error {
	n, err := s.client.Question.Update().
		Where(
			question.IDEQ(questionID),
			question.ConversationIDEQ(conversationID),
		).
		SetAnswered(true).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("mark question answered: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
