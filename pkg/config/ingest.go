package config

// IngestConfig bounds the work the ingest collaborator is asked to do.
// These values affect chunk count only; the core never chunks text itself.
type IngestConfig struct {
	MaxChunksPerDoc  int `yaml:"max_chunks_per_doc"`
	DefaultChunkSize int `yaml:"default_chunk_size"`
}

// DefaultIngestConfig returns the built-in ingest defaults.
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		MaxChunksPerDoc:  100,
		DefaultChunkSize: 2500,
	}
}
