// Package api exposes docuchat's external surface: the two WebSocket
// streaming endpoints the core owns (§6), a health check, and thin stub
// handlers for the HTTP collaborator endpoints the core expects to exist
// (file upload, URL ingest, PDF fetch, document delete, user-self, auth).
package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/docuchat/pkg/auth"
	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/database"
	"github.com/codeready-toolchain/docuchat/pkg/services"
	"github.com/codeready-toolchain/docuchat/pkg/session"
)

// Server is the HTTP/WebSocket API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg      *config.Config
	dbClient *database.Client

	sessions  *session.Handlers
	documents *services.DocumentService
	chunks    *services.DocumentChunkService
	users     *services.UserService
	resolver  auth.Resolver
	examples  config.ExampleDocumentSet
}

// NewServer creates a new API server with Echo v5, wired to the session
// handler pair and the ent-backed services the collaborator stubs persist
// through.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	sessions *session.Handlers,
	documents *services.DocumentService,
	chunks *services.DocumentChunkService,
	users *services.UserService,
	resolver auth.Resolver,
) *Server {
	e := echo.New()
	e.Use(middleware.BodyLimit(2 * 1024 * 1024))
	e.Use(securityHeaders())

	s := &Server{
		echo:      e,
		cfg:       cfg,
		dbClient:  dbClient,
		sessions:  sessions,
		documents: documents,
		chunks:    chunks,
		users:     users,
		resolver:  resolver,
		examples:  cfg.ExampleDocs,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)

	s.echo.GET("/api/documents/stream/:document_id", s.documentStreamHandler)
	s.echo.GET("/api/conversations/stream/:document_id", s.conversationStreamHandler)

	docs := s.echo.Group("/api/documents")
	docs.POST("/upload", s.uploadDocumentHandler)
	docs.POST("/url", s.ingestURLHandler)
	docs.POST("/:document_id/pdf", s.fetchPDFHandler)
	docs.DELETE("/:document_id", s.deleteDocumentHandler)

	user := s.echo.Group("/api/user-self")
	user.GET("", s.getUserSelfHandler)
	user.GET("/documents", s.listUserDocumentsHandler)
	user.GET("/cost", s.getUserCostHandler)

	authGroup := s.echo.Group("/api/auth")
	authGroup.GET("/config", s.authConfigHandler)
	authGroup.POST("/google-login", s.googleLoginHandler)
	authGroup.POST("/signup", s.signupHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, used
// by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
