package config

import "time"

// AuthConfig holds the auth collaborator's bearer-token settings. The core
// only consults the auth collaborator at connection setup; it never
// verifies tokens itself, but composition roots that wire the JWT-based
// reference implementation of pkg/auth need these.
type AuthConfig struct {
	JWTSecret     string        `yaml:"-"` // loaded from env only, never from YAML
	JWTExpiration time.Duration `yaml:"jwt_expiration"`
}

// DefaultAuthConfig returns the built-in auth defaults.
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTExpiration: 24 * time.Hour,
	}
}
