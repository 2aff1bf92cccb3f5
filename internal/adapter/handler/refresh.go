package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RefreshHandler handles POST /refresh.
type RefreshHandler struct {
	provider StatusProvider
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(provider StatusProvider) *RefreshHandler {
	return &RefreshHandler{provider: provider}
}

// Handle re-verifies the current session and returns the resulting status.
// Refresh never fails; an expired session comes back as unauthenticated.
func (h *RefreshHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	status := h.provider.Refresh(ctx)
	snap := h.provider.Snapshot()
	snap.Status = status

	slog.InfoContext(ctx, "status refreshed",
		"authenticated", status.IsAuthenticated,
		"can_access_dashboard", status.CanAccessDashboard,
		"loading", snap.Loading)
	return c.JSON(http.StatusOK, toStatusResponse(snap))
}
