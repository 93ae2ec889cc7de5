package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/codeready-toolchain/docuchat/test/database"

	"github.com/codeready-toolchain/docuchat/pkg/auth"
	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

func TestHandlers_TranslateConversationScope(t *testing.T) {
	h := &Handlers{}
	eventType, data := h.translate(models.ClientFrame{
		Type: "conversation.message.send",
		Data: json.RawMessage(`{"content":"hi"}`),
	}, models.ScopeConversation)

	assert.Equal(t, "conversation.message.send.requested", eventType)
	assert.Equal(t, map[string]any{"content": "hi"}, data)
}

func TestHandlers_TranslateUnknownFrameTypeIgnored(t *testing.T) {
	h := &Handlers{}
	eventType, data := h.translate(models.ClientFrame{Type: "not.a.real.type"}, models.ScopeConversation)
	assert.Empty(t, eventType)
	assert.Nil(t, data)
}

func TestHandlers_TranslateDocumentScopeRejectsConversationFrames(t *testing.T) {
	h := &Handlers{}

	eventType, _ := h.translate(models.ClientFrame{Type: "document.chunk.list"}, models.ScopeDocument)
	assert.Equal(t, "document.chunk.list.requested", eventType)

	eventType, _ = h.translate(models.ClientFrame{Type: "conversation.message.send"}, models.ScopeDocument)
	assert.Empty(t, eventType, "conversation frame types must be rejected on the document scope")
}

func TestHandlers_AuthorizedExampleDocumentAllowsAnonymous(t *testing.T) {
	db := testdb.NewTestClient(t)
	h := &Handlers{
		Documents: services.NewDocumentService(db.Client),
		Examples:  config.ExampleDocumentSet{"doc-1": true},
	}
	assert.True(t, h.authorized(context.Background(), "doc-1", auth.Identity{Anonymous: true}))
}

func TestHandlers_AuthorizedRejectsAnonymousOnNonExample(t *testing.T) {
	db := testdb.NewTestClient(t)
	h := &Handlers{
		Documents: services.NewDocumentService(db.Client),
		Examples:  config.ExampleDocumentSet{},
	}
	assert.False(t, h.authorized(context.Background(), "doc-1", auth.Identity{Anonymous: true}))
}

func TestHandlers_AuthorizedOwnerMayRead(t *testing.T) {
	db := testdb.NewTestClient(t)
	docs := services.NewDocumentService(db.Client)
	ctx := context.Background()
	owner := "u1"
	_, err := docs.Create(ctx, "doc-1", &owner, "title")
	require.NoError(t, err)

	h := &Handlers{Documents: docs, Examples: config.ExampleDocumentSet{}}
	assert.True(t, h.authorized(ctx, "doc-1", auth.Identity{UserID: "u1"}))
	assert.False(t, h.authorized(ctx, "doc-1", auth.Identity{UserID: "someone-else"}))
}

func TestHandlers_AuthorizedMissingDocumentRejected(t *testing.T) {
	db := testdb.NewTestClient(t)
	h := &Handlers{Documents: services.NewDocumentService(db.Client), Examples: config.ExampleDocumentSet{}}
	assert.False(t, h.authorized(context.Background(), "no-such-doc", auth.Identity{UserID: "u1"}))
}
