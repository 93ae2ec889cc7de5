package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/ent/document"
	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// DocumentService is the thin ent-backed CRUD wrapper the Document View
// Engine and the ingest pipeline persist through.
type DocumentService struct {
	client *ent.Client
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(client *ent.Client) *DocumentService {
	return &DocumentService{client: client}
}

// Create persists a new Document row in pending status.
func (s *DocumentService) Create(ctx context.Context, id string, ownerID *string, title string) (*ent.Document, error) {
	if id == "" {
		return nil, NewValidationError("id", "required")
	}
	if title == "" {
		return nil, NewValidationError("title", "required")
	}

	create := s.client.Document.Create().
		SetID(id).
		SetTitle(title).
		SetFullText("").
		SetStatus(document.StatusPending).
		SetCreatedAt(time.Now())
	if ownerID != nil {
		create = create.SetOwnerID(*ownerID)
	}

	doc, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// Get loads a Document by id.
func (s *DocumentService) Get(ctx context.Context, id string) (*ent.Document, error) {
	doc, err := s.client.Document.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// MarkReady transitions a Document to ready after ingestion completes,
// storing the normalized text and blob path.
func (s *DocumentService) MarkReady(ctx context.Context, id, fullText, blobPath string, meta models.DocumentMeta) error {
	_, err := s.client.Document.UpdateOneID(id).
		SetStatus(document.StatusReady).
		SetFullText(fullText).
		SetBlobPath(blobPath).
		SetMetadata(metaToMap(meta)).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("mark document ready: %w", err)
	}
	return nil
}

// MarkFailed transitions a Document to failed after ingestion errors out.
func (s *DocumentService) MarkFailed(ctx context.Context, id string) error {
	_, err := s.client.Document.UpdateOneID(id).
		SetStatus(document.StatusFailed).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("mark document failed: %w", err)
	}
	return nil
}

// CanRead reports whether userID (empty for anonymous) may read document,
// given the curated example set: any caller may read a curated example,
// and otherwise only an authenticated owner may.
func CanRead(doc *ent.Document, userID string, examples config.ExampleDocumentSet) bool {
	if examples.IsExample(doc.ID) {
		return true
	}
	if doc.OwnerID == nil {
		return false
	}
	return userID != "" && *doc.OwnerID == userID
}

func metaToMap(m models.DocumentMeta) map[string]interface{} {
	return map[string]interface{}{
		"topic_key":   m.TopicKey,
		"chunk_count": m.ChunkCount,
		"source_url":  m.SourceURL,
	}
}
