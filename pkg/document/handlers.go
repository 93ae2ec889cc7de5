package document

import (
	"context"

	"github.com/codeready-toolchain/docuchat/ent"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

// handleListChunks implements document.chunk.list: every chunk of the
// document, in sequence order.
func (e *Engine) handleListChunks(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	chunks, err := eng.chunks.All(ctx, ev.DocumentID)
	if err != nil {
		eng.emitError("document.chunk.list", ev, err)
		return err
	}
	eng.emit(models.Event{
		Type: "document.chunk.list.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"chunks": chunkSummaries(chunks)},
	})
	return nil
}

// handleGetMetadata implements document.metadata: the document's summary
// fields plus every chunk, mirroring the source's combined document+chunks
// response shape.
func (e *Engine) handleGetMetadata(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	doc, err := eng.documents.Get(ctx, ev.DocumentID)
	if err != nil {
		eng.emitError("document.metadata", ev, err)
		return err
	}
	chunks, err := eng.chunks.All(ctx, ev.DocumentID)
	if err != nil {
		eng.emitError("document.metadata", ev, err)
		return err
	}

	eng.emit(models.Event{
		Type: "document.metadata.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"document": documentSummary(doc, chunks)},
	})
	return nil
}

// handleNavigateChunks implements document.navigation: given a chunk
// index, returns the current chunk plus its neighbors' ids, bounds-checked.
func (e *Engine) handleNavigateChunks(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	data, _ := ev.Data.(map[string]any)
	indexRaw, _ := data["chunk_index"].(float64)
	index := int(indexRaw)

	count, err := eng.chunks.Count(ctx, ev.DocumentID)
	if err != nil {
		eng.emitError("document.navigation", ev, err)
		return err
	}
	if index < 0 || index >= count {
		err := services.NewValidationError("chunk_index", "out of range")
		eng.emitError("document.navigation", ev, err)
		return err
	}

	chunks, err := eng.chunks.Range(ctx, ev.DocumentID, max(index-1, 0), min(index+1, count-1))
	if err != nil {
		eng.emitError("document.navigation", ev, err)
		return err
	}
	byIdx := make(map[int]*ent.DocumentChunk, len(chunks))
	for _, c := range chunks {
		byIdx[c.Sequence] = c
	}

	nav := map[string]any{
		"current": map[string]any{"id": byIdx[index].ID, "content": byIdx[index].Content, "sequence": index},
	}
	navigation := map[string]any{"prev": nil, "next": nil}
	if index > 0 {
		if prev, ok := byIdx[index-1]; ok {
			navigation["prev"] = prev.ID
		}
	}
	if index < count-1 {
		if next, ok := byIdx[index+1]; ok {
			navigation["next"] = next.ID
		}
	}
	nav["navigation"] = navigation

	eng.emit(models.Event{
		Type: "document.navigation.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: nav,
	})
	return nil
}

// handleProcessDocument implements document.processing: an idempotent ack
// that the document exists and is ready, used by clients that connect
// before confirming ingestion has finished.
func (e *Engine) handleProcessDocument(ctx context.Context, sess *scheduler.Session, ev models.Event) error {
	eng := session(sess)
	doc, err := eng.documents.Get(ctx, ev.DocumentID)
	if err != nil {
		eng.emitError("document.processing", ev, err)
		return err
	}
	eng.emit(models.Event{
		Type: "document.processing.completed", DocumentID: ev.DocumentID,
		ConnectionID: ev.ConnectionID, RequestID: ev.RequestID,
		Data: map[string]any{"document": documentSummary(doc, nil)},
	})
	return nil
}

func chunkSummaries(chunks []*ent.DocumentChunk) []map[string]any {
	out := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		out[i] = map[string]any{"id": c.ID, "sequence": c.Sequence, "content": c.Content}
	}
	return out
}

func documentSummary(doc *ent.Document, chunks []*ent.DocumentChunk) map[string]any {
	ownerID := ""
	if doc.OwnerID != nil {
		ownerID = *doc.OwnerID
	}
	out := map[string]any{
		"id":         doc.ID,
		"title":      doc.Title,
		"status":     string(doc.Status),
		"owner_id":   ownerID,
		"created_at": doc.CreatedAt,
	}
	if chunks != nil {
		out["chunks"] = chunkSummaries(chunks)
	}
	return out
}
