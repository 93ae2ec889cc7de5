package services_test

import (
	"context"
	"testing"

	testdb "github.com/codeready-toolchain/docuchat/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

func TestDocumentService_CreateGetMarkReady(t *testing.T) {
	db := testdb.NewTestClient(t)
	svc := services.NewDocumentService(db.Client)
	ctx := context.Background()

	owner := "u1"
	doc, err := svc.Create(ctx, "doc-1", &owner, "My Doc")
	require.NoError(t, err)
	assert.Equal(t, "pending", doc.Status.String())

	got, err := svc.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "My Doc", got.Title)

	require.NoError(t, svc.MarkReady(ctx, "doc-1", "full text here", "blob://doc-1", models.DocumentMeta{ChunkCount: 3}))

	ready, err := svc.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "ready", ready.Status.String())
	assert.Equal(t, "full text here", ready.FullText)
}

func TestDocumentService_CreateRejectsMissingFields(t *testing.T) {
	db := testdb.NewTestClient(t)
	svc := services.NewDocumentService(db.Client)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", nil, "title")
	assert.True(t, services.IsValidationError(err))

	_, err = svc.Create(ctx, "id", nil, "")
	assert.True(t, services.IsValidationError(err))
}

func TestDocumentService_GetMissingReturnsNotFound(t *testing.T) {
	db := testdb.NewTestClient(t)
	svc := services.NewDocumentService(db.Client)

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, services.ErrNotFound)
}
