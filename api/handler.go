// Package api provides HTTP handlers for the chat server.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/byn52602/ask-my-github/chat"
	"github.com/byn52602/ask-my-github/journal"
	"github.com/byn52602/ask-my-github/policy"
)

// HealthChecker probes the remote backend's liveness.
type HealthChecker interface {
	Health(ctx context.Context) (string, error)
}

// Handler handles HTTP requests.
type Handler struct {
	orchestrator *chat.Orchestrator
	policyEngine *policy.Engine
	journal      *journal.Journal
	backend      HealthChecker
}

// NewHandler creates a new handler. policyEngine, journal and backend may
// be nil.
func NewHandler(orch *chat.Orchestrator, policyEngine *policy.Engine, j *journal.Journal, backend HealthChecker) *Handler {
	return &Handler{
		orchestrator: orch,
		policyEngine: policyEngine,
		journal:      j,
		backend:      backend,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/chat/ask", h.Ask)
	e.POST("/v1/chat/index", h.Index)
	e.GET("/v1/chat/transcript", h.GetTranscript)
	e.GET("/v1/chat/status", h.GetStatus)

	e.GET("/v1/events", h.GetEvents)

	e.GET("/health", h.Health)
}

// Health returns health status, including a best-effort probe of the
// remote backend.
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	}

	if h.backend != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if status, err := h.backend.Health(ctx); err != nil {
			resp["backend"] = "unreachable"
		} else {
			resp["backend"] = status
		}
	}

	return c.JSON(http.StatusOK, resp)
}
