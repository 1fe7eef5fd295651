package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/byn52602/ask-my-github/policy"
)

// AskRequest is the request body for POST /v1/chat/ask.
type AskRequest struct {
	Question string `json:"question"`
	RepoURL  string `json:"repo_url"`
}

// IndexRequest is the request body for POST /v1/chat/index.
type IndexRequest struct {
	RepoURL string `json:"repo_url"`
}

// Ask submits a question intent.
// POST /v1/chat/ask
func (h *Handler) Ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.RepoURL) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "question and repo_url are required"})
	}

	if blocked := h.repoBlocked(c, req.RepoURL); blocked != nil {
		return blocked
	}

	if !h.orchestrator.SubmitQuestion(c.Request().Context(), req.Question, req.RepoURL) {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"accepted": false,
			"error":    "an operation is already in flight",
		})
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{"accepted": true})
}

// Index submits an indexing intent.
// POST /v1/chat/index
func (h *Handler) Index(c echo.Context) error {
	var req IndexRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if strings.TrimSpace(req.RepoURL) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "repo_url is required"})
	}

	if blocked := h.repoBlocked(c, req.RepoURL); blocked != nil {
		return blocked
	}

	if !h.orchestrator.RequestIndexing(c.Request().Context(), req.RepoURL) {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"accepted": false,
			"error":    "an operation is already in flight",
		})
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{"accepted": true})
}

// GetTranscript returns the transcript snapshot, valid at any time
// including while an operation is in flight.
// GET /v1/chat/transcript
func (h *Handler) GetTranscript(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"turns": h.orchestrator.Turns(),
	})
}

// GetStatus returns the busy flag and the active repository.
// GET /v1/chat/status
func (h *Handler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"busy":              h.orchestrator.Busy(),
		"active_repository": h.orchestrator.ActiveRepository(),
	})
}

// repoBlocked evaluates the repository policy and returns a non-nil
// response when the intent must not reach the orchestrator.
func (h *Handler) repoBlocked(c echo.Context, repoURL string) error {
	if h.policyEngine == nil {
		return nil
	}

	decision, err := h.policyEngine.Evaluate(c.Request().Context(), repoURL)
	if err != nil {
		log.Printf("ERROR: policy evaluation failed: %v", err)
		return nil
	}
	if decision == policy.DecisionBlock {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "repository not allowed by policy"})
	}
	return nil
}
