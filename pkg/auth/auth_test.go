package auth

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver() *JWTResolver {
	return NewJWTResolver(&config.AuthConfig{JWTSecret: "test-secret", JWTExpiration: time.Hour})
}

func TestJWTResolver_EmptyTokenIsAnonymous(t *testing.T) {
	r := testResolver()
	id, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, id.Anonymous)
	assert.Empty(t, id.UserID)
}

func TestJWTResolver_IssueThenResolveRoundTrips(t *testing.T) {
	r := testResolver()
	token, err := r.Issue("user-42")
	require.NoError(t, err)

	id, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, id.Anonymous)
	assert.Equal(t, "user-42", id.UserID)
}

func TestJWTResolver_RejectsTokenSignedWithWrongSecret(t *testing.T) {
	r1 := NewJWTResolver(&config.AuthConfig{JWTSecret: "secret-a", JWTExpiration: time.Hour})
	r2 := NewJWTResolver(&config.AuthConfig{JWTSecret: "secret-b", JWTExpiration: time.Hour})

	token, err := r1.Issue("user-1")
	require.NoError(t, err)

	_, err = r2.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTResolver_RejectsExpiredToken(t *testing.T) {
	r := NewJWTResolver(&config.AuthConfig{JWTSecret: "test-secret", JWTExpiration: -time.Hour})
	token, err := r.Issue("user-1")
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTResolver_RejectsGarbageToken(t *testing.T) {
	r := testResolver()
	_, err := r.Resolve(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
