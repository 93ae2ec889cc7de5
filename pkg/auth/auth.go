// Package auth is the Go-side boundary for the Authentication collaborator
// (§1: OAuth identity verification and bearer tokens live outside the
// core). The core consults Resolve once, at WebSocket connection setup,
// and treats its result as authoritative for the life of that connection.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for a malformed, expired, or badly-signed
// token. Resolve returns it together with a zero Identity; the session and
// user handlers then fall back to an anonymous identity.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the result of a successful Resolve: a known user, or the
// zero value with Anonymous set for an absent token. Example
// documents (config.ExampleDocumentSet) remain readable by anonymous
// identities; everything else requires UserID.
type Identity struct {
	UserID    string
	Anonymous bool
}

// Resolver is the `Resolve(token) → user | anonymous` collaborator
// interface the spec names at §1.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// claims is the JWT payload shape: user_id + the standard expiration
// claim, matching original_source's create_jwt_token/verify_jwt_token.
type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTResolver implements Resolver against HS256 bearer tokens signed with
// the configured JWT_SECRET.
type JWTResolver struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTResolver creates a JWTResolver from auth configuration.
func NewJWTResolver(cfg *config.AuthConfig) *JWTResolver {
	return &JWTResolver{secret: []byte(cfg.JWTSecret), expiration: cfg.JWTExpiration}
}

// Resolve verifies token and extracts the user id. An empty token resolves
// to the anonymous identity rather than an error — anonymous access to
// example documents is a normal, expected path (§8).
func (r *JWTResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{Anonymous: true}, nil
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserID == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: c.UserID}, nil
}

// Issue mints a new bearer token for userID, valid for the resolver's
// configured expiration. Provided for completeness/tests; the login HTTP
// surface that actually calls this lives outside the core (§1).
func (r *JWTResolver) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.expiration)),
		},
	})
	return token.SignedString(r.secret)
}
