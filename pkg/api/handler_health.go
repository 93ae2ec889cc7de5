package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/docuchat/pkg/database"
	"github.com/codeready-toolchain/docuchat/pkg/version"
)

// healthHandler handles GET /health. Only docuchat's own database
// connection is checked; the LLM, Slack, and auth collaborators are
// external and excluded so that their outages don't flip this process
// unhealthy.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.dbClient.DB())
	status := http.StatusOK
	resp := &HealthResponse{Status: "healthy", Version: version.Full()}
	if err != nil {
		status = http.StatusServiceUnavailable
		resp.Status = "unhealthy"
		resp.Database = err.Error()
	} else {
		resp.Database = dbHealth.Status
	}
	return c.JSON(status, resp)
}
