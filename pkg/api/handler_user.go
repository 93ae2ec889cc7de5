package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// userSelfResponse is the shape returned by GET /api/user-self.
type userSelfResponse struct {
	UserID    string `json:"user_id"`
	Anonymous bool   `json:"anonymous"`
}

// getUserSelfHandler handles GET /api/user-self: resolves the bearer token
// the same way a WebSocket connection would and reports the identity.
func (s *Server) getUserSelfHandler(c *echo.Context) error {
	identity, err := s.resolver.Resolve(c.Request().Context(), bearerToken(c))
	if err != nil {
		return c.JSON(http.StatusOK, &userSelfResponse{Anonymous: true})
	}
	return c.JSON(http.StatusOK, &userSelfResponse{UserID: identity.UserID, Anonymous: identity.Anonymous})
}

// listUserDocumentsHandler handles GET /api/user-self/documents. Documents
// are looked up by id everywhere else in this core; listing by owner has no
// backing query yet, so this collaborator stub always returns an empty list.
func (s *Server) listUserDocumentsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, []DocumentResponse{})
}

// getUserCostHandler handles GET /api/user-self/cost: the user's running
// cost accumulator, the same figure the Cost Guard checks on message.send.
func (s *Server) getUserCostHandler(c *echo.Context) error {
	identity, err := s.resolver.Resolve(c.Request().Context(), bearerToken(c))
	if err != nil || identity.Anonymous {
		return c.JSON(http.StatusOK, map[string]any{"cost_usd": 0})
	}
	cost, err := s.users.UserCostAccum(c.Request().Context(), identity.UserID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"cost_usd": cost})
}

func bearerToken(c *echo.Context) string {
	if t := c.QueryParam("token"); t != "" {
		return t
	}
	const prefix = "Bearer "
	if h := c.Request().Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
