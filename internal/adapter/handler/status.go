package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"status-hub/internal/domain"
	"status-hub/internal/usecase"

	"github.com/labstack/echo/v4"
)

const defaultHeartbeatInterval = 15 * time.Second

// StatusProvider is the part of the verifier the HTTP surface reads from.
type StatusProvider interface {
	Snapshot() usecase.StatusSnapshot
	Subscribe(fn func(usecase.StatusSnapshot)) (unsubscribe func())
	Refresh(ctx context.Context) domain.UserStatus
}

// StatusHandler serves the published status and its SSE stream.
type StatusHandler struct {
	provider  StatusProvider
	heartbeat time.Duration
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider, heartbeat: defaultHeartbeatInterval}
}

// userResponse represents the user object in the response.
type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	Approved bool   `json:"approved"`
}

// statusResponse represents the JSON response structure.
type statusResponse struct {
	IsAuthenticated        bool          `json:"isAuthenticated"`
	NeedsEmailConfirmation bool          `json:"needsEmailConfirmation"`
	NeedsApproval          bool          `json:"needsApproval"`
	NeedsProfileCompletion bool          `json:"needsProfileCompletion"`
	CanAccessDashboard     bool          `json:"canAccessDashboard"`
	User                   *userResponse `json:"user"`
	Loading                bool          `json:"loading"`
}

func toStatusResponse(snap usecase.StatusSnapshot) statusResponse {
	s := snap.Status
	resp := statusResponse{
		IsAuthenticated:        s.IsAuthenticated,
		NeedsEmailConfirmation: s.NeedsEmailConfirmation,
		NeedsApproval:          s.NeedsApproval,
		NeedsProfileCompletion: s.NeedsProfileCompletion,
		CanAccessDashboard:     s.CanAccessDashboard,
		Loading:                snap.Loading,
	}
	if s.User != nil {
		u := &userResponse{
			ID:       s.User.ID,
			Email:    s.User.Email,
			FullName: s.User.FullName,
			Phone:    s.User.Phone,
			Approved: s.User.Approved,
		}
		if s.User.Role != nil {
			u.Role = string(*s.User.Role)
		}
		resp.User = u
	}
	return resp
}

// Handle processes the GET /status endpoint.
func (h *StatusHandler) Handle(c echo.Context) error {
	return c.JSON(http.StatusOK, toStatusResponse(h.provider.Snapshot()))
}

// Stream processes GET /status/stream, pushing the status as Server-Sent
// Events on every change until the client disconnects.
func (h *StatusHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	// Only the newest snapshot matters to a slow reader.
	updates := make(chan usecase.StatusSnapshot, 1)
	unsubscribe := h.provider.Subscribe(func(snap usecase.StatusSnapshot) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, h.provider.Snapshot()); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "status stream closed by client")
			return nil
		case <-heartbeat.C:
			if _, err := res.Write([]byte(": heartbeat\n\n")); err != nil {
				return nil
			}
			res.Flush()
		case snap := <-updates:
			if err := writeEvent(res, snap); err != nil {
				slog.InfoContext(ctx, "status stream client disconnected", "error", err)
				return nil
			}
		}
	}
}

func writeEvent(res *echo.Response, snap usecase.StatusSnapshot) error {
	data, err := json.Marshal(toStatusResponse(snap))
	if err != nil {
		return err
	}
	if _, err := res.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return err
	}
	res.Flush()
	return nil
}
