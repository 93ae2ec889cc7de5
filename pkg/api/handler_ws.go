package api

import (
	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// documentStreamHandler upgrades GET /api/documents/stream/:document_id to
// a WebSocket and runs its read/write loop under the document scope (§4.3,
// §6).
func (s *Server) documentStreamHandler(c *echo.Context) error {
	return s.streamHandler(c, models.ScopeDocument)
}

// conversationStreamHandler upgrades GET /api/conversations/stream/:document_id
// to a WebSocket and runs its read/write loop under the conversation scope.
func (s *Server) conversationStreamHandler(c *echo.Context) error {
	return s.streamHandler(c, models.ScopeConversation)
}

func (s *Server) streamHandler(c *echo.Context, scope models.ConnectionScope) error {
	documentID := c.Param("document_id")
	token := c.QueryParam("token")

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// Origin validation is the reverse proxy's job in this deployment;
		// the allowlist in config.ServerConfig.AllowedWSOrigins is enforced
		// upstream of this process.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	// Handle blocks until the socket closes.
	s.sessions.Handle(c.Request().Context(), conn, documentID, token, scope)
	return nil
}
