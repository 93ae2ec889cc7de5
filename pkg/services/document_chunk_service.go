package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/ent/documentchunk"
	"github.com/google/uuid"
)

// DocumentChunkService is the ent-backed CRUD wrapper over a Document's
// ordered chunks.
type DocumentChunkService struct {
	client *ent.Client
}

// NewDocumentChunkService creates a new DocumentChunkService.
func NewDocumentChunkService(client *ent.Client) *DocumentChunkService {
	return &DocumentChunkService{client: client}
}

// CreateAll persists contents as sequence 0..len(contents)-1 chunks of
// documentID. Called once, after ingestion produces the chunk list.
func (s *DocumentChunkService) CreateAll(ctx context.Context, documentID string, contents []string) error {
	builders := make([]*ent.DocumentChunkCreate, len(contents))
	for i, content := range contents {
		builders[i] = s.client.DocumentChunk.Create().
			SetID(uuid.New().String()).
			SetDocumentID(documentID).
			SetSequence(i).
			SetContent(content).
			SetMetadata(map[string]interface{}{"length": len(content), "index": i})
	}
	if _, err := s.client.DocumentChunk.CreateBulk(builders...).Save(ctx); err != nil {
		return fmt.Errorf("create document chunks: %w", err)
	}
	return nil
}

// Get loads the chunk at sequence within documentID. sequence is accepted
// as a string since every wire/event payload carries sequence numbers as
// strings (§ client frame shapes).
func (s *DocumentChunkService) Get(ctx context.Context, documentID, sequence string) (*ent.DocumentChunk, error) {
	seq, err := strconv.Atoi(sequence)
	if err != nil {
		return nil, NewValidationError("chunk_id", "must be numeric")
	}
	chunk, err := s.client.DocumentChunk.Query().
		Where(
			documentchunk.DocumentIDEQ(documentID),
			documentchunk.SequenceEQ(seq),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document chunk: %w", err)
	}
	return chunk, nil
}

// First loads sequence 0 of documentID.
func (s *DocumentChunkService) First(ctx context.Context, documentID string) (*ent.DocumentChunk, error) {
	return s.Get(ctx, documentID, "0")
}

// Count returns the number of chunks in documentID.
func (s *DocumentChunkService) Count(ctx context.Context, documentID string) (int, error) {
	n, err := s.client.DocumentChunk.Query().
		Where(documentchunk.DocumentIDEQ(documentID)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count document chunks: %w", err)
	}
	return n, nil
}

// Range loads chunks [from, to] inclusive, ordered by sequence.
func (s *DocumentChunkService) Range(ctx context.Context, documentID string, from, to int) ([]*ent.DocumentChunk, error) {
	chunks, err := s.client.DocumentChunk.Query().
		Where(
			documentchunk.DocumentIDEQ(documentID),
			documentchunk.SequenceGTE(from),
			documentchunk.SequenceLTE(to),
		).
		Order(ent.Asc(documentchunk.FieldSequence)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("range document chunks: %w", err)
	}
	return chunks, nil
}

// All loads every chunk of documentID, ordered by sequence.
func (s *DocumentChunkService) All(ctx context.Context, documentID string) ([]*ent.DocumentChunk, error) {
	chunks, err := s.client.DocumentChunk.Query().
		Where(documentchunk.DocumentIDEQ(documentID)).
		Order(ent.Asc(documentchunk.FieldSequence)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document chunks: %w", err)
	}
	return chunks, nil
}

// AllText concatenates every chunk of documentID, in sequence order,
// separated by blank lines, for full-context prompt assembly.
func (s *DocumentChunkService) AllText(ctx context.Context, documentID string) (string, error) {
	chunks, err := s.client.DocumentChunk.Query().
		Where(documentchunk.DocumentIDEQ(documentID)).
		Order(ent.Asc(documentchunk.FieldSequence)).
		All(ctx)
	if err != nil {
		return "", fmt.Errorf("load document chunks: %w", err)
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n\n"), nil
}
