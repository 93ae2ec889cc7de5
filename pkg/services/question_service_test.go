package services_test

import (
	"context"
	"testing"

	testdb "github.com/codeready-toolchain/docuchat/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/docuchat/pkg/services"
)

func TestQuestionService_CreateAllSkipsBlank(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	qs := services.NewQuestionService(db.Client)
	ctx := context.Background()

	seedConversation(t, ctx, docs, convs, "doc-1", "conv-1")

	created, err := qs.CreateAll(ctx, "conv-1", "0", []string{"What is X?", "  ", "Why Y?"})
	require.NoError(t, err)
	require.Len(t, created, 2)

	unanswered, err := qs.ListUnanswered(ctx, "conv-1", "0")
	require.NoError(t, err)
	assert.Len(t, unanswered, 2)
}

func TestQuestionService_MarkAnsweredAndMarkAllAnswered(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	qs := services.NewQuestionService(db.Client)
	ctx := context.Background()

	seedConversation(t, ctx, docs, convs, "doc-1", "conv-1")
	created, err := qs.CreateAll(ctx, "conv-1", "0", []string{"What is X?", "Why Y?"})
	require.NoError(t, err)
	require.Len(t, created, 2)

	require.NoError(t, qs.MarkAnswered(ctx, "conv-1", created[0].ID))
	unanswered, err := qs.ListUnanswered(ctx, "conv-1", "0")
	require.NoError(t, err)
	require.Len(t, unanswered, 1)
	assert.Equal(t, created[1].ID, unanswered[0].ID)

	require.NoError(t, qs.MarkAllAnswered(ctx, "conv-1"))
	unanswered, err = qs.ListUnanswered(ctx, "conv-1", "0")
	require.NoError(t, err)
	assert.Empty(t, unanswered)
}

func TestQuestionService_MarkAnsweredMissingReturnsNotFound(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	qs := services.NewQuestionService(db.Client)
	ctx := context.Background()

	seedConversation(t, ctx, docs, convs, "doc-1", "conv-1")
	err := qs.MarkAnswered(ctx, "conv-1", "no-such-question")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestQuestionService_ListPreviousContentIncludesAnswered(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	convs := services.NewConversationService(db.Client)
	qs := services.NewQuestionService(db.Client)
	ctx := context.Background()

	seedConversation(t, ctx, docs, convs, "doc-1", "conv-1")
	_, err := qs.CreateAll(ctx, "conv-1", "0", []string{"What is X?"})
	require.NoError(t, err)
	require.NoError(t, qs.MarkAllAnswered(ctx, "conv-1"))

	prev, err := qs.ListPreviousContent(ctx, "conv-1", "0")
	require.NoError(t, err)
	assert.Equal(t, []string{"What is X?"}, prev)
}
