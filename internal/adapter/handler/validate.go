package handler

import (
	"log/slog"
	"net/http"

	"status-hub/internal/domain"

	"github.com/labstack/echo/v4"
)

// ValidateHandler handles /validate for nginx auth_request style route guards.
type ValidateHandler struct {
	provider StatusProvider
	issuer   domain.StatusTokenIssuer
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(provider StatusProvider, issuer domain.StatusTokenIssuer) *ValidateHandler {
	return &ValidateHandler{provider: provider, issuer: issuer}
}

// Handle lets the request through only once the status is settled and grants
// dashboard access.
func (h *ValidateHandler) Handle(c echo.Context) error {
	snap := h.provider.Snapshot()
	if snap.Loading {
		c.Response().Header().Set("Retry-After", "1")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "status is being verified")
	}

	status := snap.Status
	if !status.CanAccessDashboard || status.User == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "dashboard access denied")
	}

	token, err := h.issuer.IssueStatusToken(status)
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to issue status token", "error", err)
		return mapDomainError(err)
	}

	c.Response().Header().Set("X-Status-User-Id", status.User.ID)
	if status.User.Role != nil {
		c.Response().Header().Set("X-Status-Role", string(*status.User.Role))
	}
	c.Response().Header().Set("X-Status-Token", token)
	return c.NoContent(http.StatusOK)
}
