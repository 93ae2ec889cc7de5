// Package ingest is the Go-side boundary for the Document Ingestion
// collaborator (§1): PDF/DOCX text extraction, paragraph detection, and
// size-bounded chunking live outside the core. The core only calls Ingest
// and persists whatever it returns.
package ingest

import (
	"context"
	"strings"

	"github.com/codeready-toolchain/docuchat/pkg/config"
)

// Result is the pure function's output: a title, the full normalized
// text, the paragraph-aware chunks derived from it, and the cost (if any)
// of producing it — e.g. an LLM cleanup pass charged against the
// uploading user.
type Result struct {
	Title    string
	FullText string
	Chunks   []string
	CostUSD  float64
}

// Ingester is the `Ingest(bytes, mime) → (title, full_text, chunks[], cost)`
// collaborator interface the spec names at §1.
type Ingester interface {
	Ingest(ctx context.Context, data []byte, mime string) (Result, error)
}

// PlainTextIngester is a reference implementation for text/markdown
// uploads: no OCR, no LLM cleanup pass (cost is always zero), just
// paragraph-aware chunking bounded by the ingest configuration. PDF/DOCX
// extraction is a genuinely external concern (fitz/docx parsing) this repo
// does not reimplement; this type exists so the core has something real
// to exercise end to end for the mime types that need no extraction step.
type PlainTextIngester struct {
	cfg *config.IngestConfig
}

// NewPlainTextIngester creates a PlainTextIngester bound to the ingest
// configuration's chunk-size and chunk-count limits.
func NewPlainTextIngester(cfg *config.IngestConfig) *PlainTextIngester {
	return &PlainTextIngester{cfg: cfg}
}

// Ingest normalizes data as UTF-8 text and splits it into paragraph-aware
// chunks of at most cfg.DefaultChunkSize characters, capped at
// cfg.MaxChunksPerDoc chunks. mime is accepted but not inspected — callers
// route PDF/DOCX bytes to a different Ingester.
func (p *PlainTextIngester) Ingest(ctx context.Context, data []byte, mime string) (Result, error) {
	text := normalizeText(string(data))
	chunks := chunkParagraphs(text, p.cfg.DefaultChunkSize, p.cfg.MaxChunksPerDoc)
	title := deriveTitle(text)

	return Result{
		Title:    title,
		FullText: text,
		Chunks:   chunks,
		CostUSD:  0,
	}, nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

func deriveTitle(text string) string {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if len(firstLine) > 120 {
		firstLine = firstLine[:120]
	}
	if firstLine == "" {
		return "untitled document"
	}
	return firstLine
}

// chunkParagraphs splits text on blank-line paragraph boundaries and packs
// consecutive paragraphs into chunks up to maxChars, never splitting a
// paragraph across a chunk boundary unless a single paragraph alone
// exceeds maxChars. Stops once maxChunks is reached, folding any remaining
// text into the final chunk rather than silently dropping it.
func chunkParagraphs(text string, maxChars, maxChunks int) []string {
	if maxChars <= 0 {
		maxChars = 2500
	}
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, strings.TrimSpace(current.String()))
		current.Reset()
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if maxChunks > 0 && len(chunks)+1 >= maxChunks {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(para)
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)

		if current.Len() >= maxChars {
			flush()
		}
	}
	flush()

	if len(chunks) == 0 && text != "" {
		chunks = []string{text}
	}
	return chunks
}
