package services_test

import (
	"context"
	"testing"
	"time"

	testdb "github.com/codeready-toolchain/docuchat/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

func TestConversationService_CreateGetDelete(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	ctx := context.Background()

	seedDocument(t, ctx, docs, "doc-1")
	conv, err := convs.Create(ctx, services.CreateParams{
		ID:         "conv-1",
		DocumentID: "doc-1",
		Kind:       models.ConversationMain,
	})
	require.NoError(t, err)
	assert.Equal(t, "main", conv.Kind.String())

	got, err := convs.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)

	require.NoError(t, convs.Delete(ctx, "conv-1"))
	_, err = convs.Get(ctx, "conv-1")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestConversationService_DeleteMissingIsNoOp(t *testing.T) {
	db := testdb.NewTestClient(t)
	convs := services.NewConversationService(db.Client)
	assert.NoError(t, convs.Delete(context.Background(), "missing"))
}

func TestConversationService_FindExistingMainNonDemo(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	ctx := context.Background()

	seedDocument(t, ctx, docs, "doc-1")
	_, err := convs.Create(ctx, services.CreateParams{ID: "conv-1", DocumentID: "doc-1", Kind: models.ConversationMain})
	require.NoError(t, err)

	found, err := convs.FindExistingMain(ctx, "doc-1", false, "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "conv-1", found.ID)

	notFound, err := convs.FindExistingMain(ctx, "no-such-doc", false, "")
	require.NoError(t, err)
	assert.Nil(t, notFound)
}

func TestConversationService_FindExistingMainDemoScopedByConnection(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	ctx := context.Background()

	seedDocument(t, ctx, docs, "doc-1")
	_, err := convs.Create(ctx, services.CreateParams{
		ID: "conv-a", DocumentID: "doc-1", Kind: models.ConversationMain,
		IsDemo: true, Meta: models.ConversationMeta{ConnectionID: "conn-a"},
	})
	require.NoError(t, err)
	_, err = convs.Create(ctx, services.CreateParams{
		ID: "conv-b", DocumentID: "doc-1", Kind: models.ConversationMain,
		IsDemo: true, Meta: models.ConversationMeta{ConnectionID: "conn-b"},
	})
	require.NoError(t, err)

	found, err := convs.FindExistingMain(ctx, "doc-1", true, "conn-b")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "conv-b", found.ID)

	notFound, err := convs.FindExistingMain(ctx, "doc-1", true, "conn-c")
	require.NoError(t, err)
	assert.Nil(t, notFound)
}

func TestConversationService_ListScopedToConnectionForDemo(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	ctx := context.Background()

	seedDocument(t, ctx, docs, "doc-1")
	_, err := convs.Create(ctx, services.CreateParams{
		ID: "conv-a", DocumentID: "doc-1", Kind: models.ConversationMain,
		IsDemo: true, Meta: models.ConversationMeta{ConnectionID: "conn-a"},
	})
	require.NoError(t, err)
	_, err = convs.Create(ctx, services.CreateParams{
		ID: "conv-b", DocumentID: "doc-1", Kind: models.ConversationMain,
		IsDemo: true, Meta: models.ConversationMeta{ConnectionID: "conn-b"},
	})
	require.NoError(t, err)

	list, err := convs.List(ctx, "doc-1", true, "conn-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "conv-a", list[0].ID)
}

func TestConversationService_ListDemoOlderThan(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	ctx := context.Background()

	seedDocument(t, ctx, docs, "doc-1")
	_, err := convs.Create(ctx, services.CreateParams{
		ID: "conv-old", DocumentID: "doc-1", Kind: models.ConversationMain, IsDemo: true,
	})
	require.NoError(t, err)

	// Backdate the row directly since Create always stamps now().
	_, err = db.Client.Conversation.UpdateOneID("conv-old").
		SetCreatedAt(time.Now().Add(-48 * time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	stale, err := convs.ListDemoOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "conv-old", stale[0].ID)
}

func TestConversationService_UpdateMeta(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	ctx := context.Background()

	seedDocument(t, ctx, docs, "doc-1")
	_, err := convs.Create(ctx, services.CreateParams{ID: "conv-1", DocumentID: "doc-1", Kind: models.ConversationMain})
	require.NoError(t, err)

	require.NoError(t, convs.UpdateMeta(ctx, "conv-1", models.ConversationMeta{SeenChunks: []string{"0", "1"}}))
	got, err := convs.Get(ctx, "conv-1")
	require.NoError(t, err)
	seen, ok := got.Metadata["seen_chunks"].([]interface{})
	require.True(t, ok)
	assert.Len(t, seen, 2)
}
