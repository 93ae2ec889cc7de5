package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// authConfigHandler handles GET /api/auth/config: tells the frontend which
// auth collaborator is configured. Google OAuth and signup live entirely
// outside the core (§1); this just reports that JWT bearer tokens are how
// the core expects identity to arrive.
func (s *Server) authConfigHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"scheme": "jwt",
	})
}

// googleLoginHandler handles POST /api/auth/google-login. Verifying a
// Google ID token and minting docuchat's own JWT is the auth
// collaborator's job end to end; this stub only proves the route exists.
func (s *Server) googleLoginHandler(c *echo.Context) error {
	return echo.NewHTTPError(http.StatusNotImplemented, "google login is handled by the auth collaborator")
}

// signupHandler handles POST /api/auth/signup, for the same reason.
func (s *Server) signupHandler(c *echo.Context) error {
	return echo.NewHTTPError(http.StatusNotImplemented, "signup is handled by the auth collaborator")
}
