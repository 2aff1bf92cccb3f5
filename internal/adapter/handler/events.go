package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"status-hub/internal/domain"
	"status-hub/utils/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// EventPublisher accepts auth events for the verifier.
type EventPublisher interface {
	Publish(event domain.AuthEvent)
}

// EventsHandler handles POST /internal/events, the webhook sink for auth
// events pushed by the identity provider.
type EventsHandler struct {
	publisher EventPublisher
	validate  *validator.Validate
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(publisher EventPublisher) *EventsHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("auth_event", func(fl validator.FieldLevel) bool {
		return domain.ParseEventKind(fl.Field().String()).Known()
	})

	return &EventsHandler{publisher: publisher, validate: validate}
}

type identityPayload struct {
	ID            string    `json:"id" validate:"required"`
	Email         string    `json:"email" validate:"omitempty,email"`
	EmailVerified bool      `json:"emailVerified"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type sessionPayload struct {
	ID              string           `json:"id" validate:"required"`
	ExpiresAt       time.Time        `json:"expiresAt"`
	AuthenticatedAt time.Time        `json:"authenticatedAt"`
	Identity        *identityPayload `json:"identity" validate:"required"`
}

// eventRequest is the webhook body. A null session means signed out.
type eventRequest struct {
	Event   string          `json:"event" validate:"required,auth_event"`
	Session *sessionPayload `json:"session"`
}

func (r eventRequest) toDomain() domain.AuthEvent {
	event := domain.AuthEvent{Kind: domain.ParseEventKind(r.Event)}
	if r.Session == nil {
		return event
	}
	event.Session = &domain.Session{
		ID:                r.Session.ID,
		ExpiresAt:         r.Session.ExpiresAt,
		AuthenticatedAt:   r.Session.AuthenticatedAt,
		IdentityUpdatedAt: r.Session.Identity.UpdatedAt,
		Identity: &domain.UserIdentity{
			ID:            r.Session.Identity.ID,
			Email:         r.Session.Identity.Email,
			EmailVerified: r.Session.Identity.EmailVerified,
		},
	}
	return event
}

// Handle validates the payload and hands the event to the bus. The verifier
// debounces it, so the response does not wait for classification.
func (h *EventsHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return mapDomainError(fmt.Errorf("%w: malformed body", domain.ErrInvalidEvent))
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			slog.WarnContext(ctx, "rejected auth event",
				"field", verrs[0].Namespace(),
				"tag", verrs[0].Tag(),
				"remote_addr", c.RealIP())
			return mapDomainError(fmt.Errorf("%w: %s failed %s", domain.ErrInvalidEvent, verrs[0].Field(), verrs[0].Tag()))
		}
		return mapDomainError(fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err))
	}

	event := req.toDomain()
	h.publisher.Publish(event)

	ctx = logger.WithEventKind(ctx, string(event.Kind))
	if id := event.Identity(); id != nil {
		ctx = logger.WithUserID(ctx, id.ID)
	}
	slog.InfoContext(ctx, "auth event accepted")
	return c.NoContent(http.StatusAccepted)
}
