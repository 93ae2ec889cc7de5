package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// chunkParagraphs splits text into paragraph-respecting chunks bounded by
// maxSize, falling back to a hard cut when a single paragraph exceeds it.
// Ported from the PDF ingest collaborator's chunking strategy; the core
// itself never chunks text (§6), but the upload/URL stubs below need
// *some* chunking to populate document_chunks realistically.
func chunkParagraphs(text string, maxSize, maxChunks int) []string {
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(chunks) >= maxChunks {
			break
		}
		if current.Len()+len(para)+2 > maxSize && current.Len() > 0 {
			flush()
		}
		if len(para) > maxSize {
			flush()
			for len(para) > maxSize {
				chunks = append(chunks, para[:maxSize])
				para = para[maxSize:]
			}
			current.WriteString(para)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	return chunks
}

func (s *Server) ingestText(c *echo.Context, documentID, title, text string, ownerID *string) error {
	doc, err := s.documents.Create(c.Request().Context(), documentID, ownerID, title)
	if err != nil {
		return mapServiceError(err)
	}

	chunks := chunkParagraphs(text, s.cfg.Ingest.DefaultChunkSize, s.cfg.Ingest.MaxChunksPerDoc)
	if err := s.chunks.CreateAll(c.Request().Context(), documentID, chunks); err != nil {
		return mapServiceError(err)
	}
	if err := s.documents.MarkReady(c.Request().Context(), documentID, text, "", models.DocumentMeta{ChunkCount: len(chunks)}); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, &DocumentResponse{
		ID: doc.ID, Title: doc.Title, Status: "ready", ChunkCount: len(chunks),
	})
}

// uploadDocumentHandler handles POST /api/documents/upload. A real upload
// collaborator would extract text from PDF/DOCX/MD; this stub persists
// pre-extracted text through the same path a real one would use.
func (s *Server) uploadDocumentHandler(c *echo.Context) error {
	var req uploadDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return s.ingestText(c, uuid.New().String(), req.Title, req.Text, req.OwnerID)
}

// ingestURLHandler handles POST /api/documents/url. A real URL ingest
// collaborator would fetch and extract the page; this stub persists
// pre-extracted text the same way.
func (s *Server) ingestURLHandler(c *echo.Context) error {
	var req ingestURLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	title := req.Title
	if title == "" {
		title = req.URL
	}
	return s.ingestText(c, uuid.New().String(), title, req.Text, req.OwnerID)
}

// fetchPDFHandler handles POST /api/documents/:document_id/pdf. A real PDF
// fetch collaborator pulls the stored blob back out for re-display; here
// it just echoes the persisted document metadata.
func (s *Server) fetchPDFHandler(c *echo.Context) error {
	doc, err := s.documents.Get(c.Request().Context(), c.Param("document_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &DocumentResponse{ID: doc.ID, Title: doc.Title, Status: string(doc.Status)})
}

// deleteDocumentHandler handles DELETE /api/documents/:document_id.
func (s *Server) deleteDocumentHandler(c *echo.Context) error {
	doc, err := s.documents.Get(c.Request().Context(), c.Param("document_id"))
	if err != nil {
		return mapServiceError(err)
	}
	if err := s.documents.MarkFailed(c.Request().Context(), doc.ID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
