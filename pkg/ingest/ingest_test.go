package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTextIngester_ChunksByParagraph(t *testing.T) {
	cfg := &config.IngestConfig{DefaultChunkSize: 20, MaxChunksPerDoc: 100}
	ing := NewPlainTextIngester(cfg)

	text := "first paragraph here\n\nsecond paragraph here\n\nthird paragraph here"
	res, err := ing.Ingest(context.Background(), []byte(text), "text/plain")
	require.NoError(t, err)

	assert.Greater(t, len(res.Chunks), 1)
	assert.Equal(t, text, res.FullText)
	assert.Zero(t, res.CostUSD)
}

func TestPlainTextIngester_NeverSplitsBeyondMaxChunks(t *testing.T) {
	cfg := &config.IngestConfig{DefaultChunkSize: 5, MaxChunksPerDoc: 2}
	ing := NewPlainTextIngester(cfg)

	text := "alpha\n\nbeta\n\ngamma\n\ndelta"
	res, err := ing.Ingest(context.Background(), []byte(text), "text/plain")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(res.Chunks), 2)
	// No content is silently dropped: every paragraph survives somewhere.
	joined := strings.Join(res.Chunks, " ")
	for _, p := range []string{"alpha", "beta", "gamma", "delta"} {
		assert.Contains(t, joined, p)
	}
}

func TestPlainTextIngester_DerivesTitleFromFirstLine(t *testing.T) {
	cfg := &config.IngestConfig{DefaultChunkSize: 2500, MaxChunksPerDoc: 100}
	ing := NewPlainTextIngester(cfg)

	res, err := ing.Ingest(context.Background(), []byte("My Document Title\n\nBody text."), "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "My Document Title", res.Title)
}

func TestPlainTextIngester_EmptyInputYieldsNoChunks(t *testing.T) {
	cfg := &config.IngestConfig{DefaultChunkSize: 2500, MaxChunksPerDoc: 100}
	ing := NewPlainTextIngester(cfg)

	res, err := ing.Ingest(context.Background(), []byte(""), "text/plain")
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Equal(t, "untitled document", res.Title)
}
