package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetEvents returns events from the diagnostic journal.
// GET /v1/events
func (h *Handler) GetEvents(c echo.Context) error {
	if h.journal == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "journal not enabled"})
	}

	ctx := c.Request().Context()

	afterTs, _ := strconv.ParseInt(c.QueryParam("after_ts"), 10, 64)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 100
	}

	events, err := h.journal.Events(ctx, afterTs, limit+1)
	if err != nil {
		log.Printf("ERROR: failed to get events: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get events"})
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":   events,
		"has_more": hasMore,
	})
}
