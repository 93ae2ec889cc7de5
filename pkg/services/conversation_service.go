package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/ent/conversation"
	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// ConversationService is the ent-backed CRUD wrapper over the main and
// highlight conversation threads anchored to a Document.
type ConversationService struct {
	client *ent.Client
}

// NewConversationService creates a new ConversationService.
func NewConversationService(client *ent.Client) *ConversationService {
	return &ConversationService{client: client}
}

// CreateParams bundles the fields needed to create a Conversation so
// callers don't have to thread six positional arguments through.
type CreateParams struct {
	ID            string
	DocumentID    string
	Kind          models.ConversationKind
	OriginChunkID *string
	Meta          models.ConversationMeta
	IsDemo        bool
}

// Create persists a new Conversation.
func (s *ConversationService) Create(ctx context.Context, p CreateParams) (*ent.Conversation, error) {
	create := s.client.Conversation.Create().
		SetID(p.ID).
		SetDocumentID(p.DocumentID).
		SetKind(conversation.Kind(p.Kind)).
		SetMetadata(metaFromConversation(p.Meta)).
		SetIsDemo(p.IsDemo).
		SetCreatedAt(time.Now())
	if p.OriginChunkID != nil {
		create = create.SetOriginChunkID(*p.OriginChunkID)
	}
	conv, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Get loads a Conversation by id.
func (s *ConversationService) Get(ctx context.Context, id string) (*ent.Conversation, error) {
	conv, err := s.client.Conversation.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// FindExistingMain looks up the document's main conversation, scoped to
// connectionID when isDemo — §4.5's "at most one main conversation per
// (document, demo-scope)" invariant.
func (s *ConversationService) FindExistingMain(ctx context.Context, documentID string, isDemo bool, connectionID string) (*ent.Conversation, error) {
	q := s.client.Conversation.Query().
		Where(
			conversation.DocumentIDEQ(documentID),
			conversation.KindEQ(conversation.KindMain),
		)
	if isDemo {
		q = q.Where(conversation.IsDemoEQ(true))
	}
	conv, err := q.Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		if ent.IsNotSingular(err) {
			// Demo scoping is matched in Go below since the connection_id
			// filter lives inside the JSON metadata column.
		} else {
			return nil, fmt.Errorf("find main conversation: %w", err)
		}
	}
	if conv != nil {
		if !isDemo {
			return conv, nil
		}
		if meta := metaToConversation(conv.Metadata); meta.ConnectionID == connectionID {
			return conv, nil
		}
		return nil, nil
	}

	// Multiple main conversations exist for this document (demo case,
	// one per connection) — scan for the one matching connectionID.
	all, err := s.client.Conversation.Query().
		Where(
			conversation.DocumentIDEQ(documentID),
			conversation.KindEQ(conversation.KindMain),
			conversation.IsDemoEQ(true),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan demo main conversations: %w", err)
	}
	for _, c := range all {
		if metaToConversation(c.Metadata).ConnectionID == connectionID {
			return c, nil
		}
	}
	return nil, nil
}

// ByChunkSequence loads every conversation of documentID anchored to
// originChunkID, used by the chunk.conversations.get operation.
func (s *ConversationService) ByChunkSequence(ctx context.Context, documentID, chunkID string) ([]*ent.Conversation, error) {
	convs, err := s.client.Conversation.Query().
		Where(
			conversation.DocumentIDEQ(documentID),
			conversation.OriginChunkIDEQ(chunkID),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations by chunk: %w", err)
	}
	return convs, nil
}

// List loads documentID's conversations, scoped to connectionID when
// isDemo (§4.8: a demo client only ever sees its own conversations).
func (s *ConversationService) List(ctx context.Context, documentID string, isDemo bool, connectionID string) ([]*ent.Conversation, error) {
	all, err := s.client.Conversation.Query().
		Where(conversation.DocumentIDEQ(documentID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if !isDemo {
		return all, nil
	}
	out := make([]*ent.Conversation, 0, len(all))
	for _, c := range all {
		if c.IsDemo && metaToConversation(c.Metadata).ConnectionID == connectionID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListDemoOlderThan loads every demo conversation created before cutoff,
// for the Demo Isolation safety-net sweep (§4.8).
func (s *ConversationService) ListDemoOlderThan(ctx context.Context, cutoff time.Time) ([]*ent.Conversation, error) {
	convs, err := s.client.Conversation.Query().
		Where(
			conversation.IsDemoEQ(true),
			conversation.CreatedAtLT(cutoff),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stale demo conversations: %w", err)
	}
	return convs, nil
}

// ListDemoByConnection loads every demo conversation tagged with
// connectionID, regardless of age, for eager disconnect-time cleanup.
func (s *ConversationService) ListDemoByConnection(ctx context.Context, connectionID string) ([]*ent.Conversation, error) {
	all, err := s.client.Conversation.Query().
		Where(conversation.IsDemoEQ(true)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list demo conversations: %w", err)
	}
	out := make([]*ent.Conversation, 0)
	for _, c := range all {
		if metaToConversation(c.Metadata).ConnectionID == connectionID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Delete removes a Conversation and (via cascade) its messages/questions.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	if err := s.client.Conversation.DeleteOneID(id).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// UpdateMeta overwrites a Conversation's metadata column, used to append
// to seen_chunks without touching any other field.
func (s *ConversationService) UpdateMeta(ctx context.Context, id string, meta models.ConversationMeta) error {
	_, err := s.client.Conversation.UpdateOneID(id).
		SetMetadata(metaFromConversation(meta)).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update conversation metadata: %w", err)
	}
	return nil
}

func metaFromConversation(m models.ConversationMeta) map[string]interface{} {
	return map[string]interface{}{
		"connection_id":   m.ConnectionID,
		"seen_chunks":     m.SeenChunks,
		"highlight_range": m.HighlightRange,
		"highlight_text":  m.HighlightText,
	}
}

func metaToConversation(raw map[string]interface{}) models.ConversationMeta {
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
