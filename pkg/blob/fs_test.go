package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutGetDelete(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "docs/a.pdf", []byte("hello")))

	data, err := store.Get(ctx, "docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, "docs/a.pdf"))
	_, err = store.Get(ctx, "docs/a.pdf")
	assert.Error(t, err)
}

func TestFSStore_DeleteMissingIsNotError(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete(context.Background(), "nope"))
}

func TestFSStore_RejectsPathEscape(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../../etc/passwd", []byte("x"))
	assert.Error(t, err)
}
