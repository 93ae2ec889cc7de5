// Package blob is the Go-side boundary for the Blob Storage collaborator
// (§1): an object store for original uploaded files, addressed by opaque
// path strings stored on the Document row.
package blob

import "context"

// Store is the `Put/Get/Delete(path, bytes)` collaborator interface the
// spec names at §1.
type Store interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}
