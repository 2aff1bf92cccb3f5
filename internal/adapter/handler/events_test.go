package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"status-hub/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postEvent(t *testing.T, handler *EventsHandler, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/internal/events", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	return rec, handler.Handle(c)
}

func TestEventsHandler_Handle(t *testing.T) {
	t.Run("publishes signed in event", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		publisher.On("Publish", mock.MatchedBy(func(e domain.AuthEvent) bool {
			return e.Kind == domain.EventSignedIn &&
				e.Session != nil &&
				e.Session.ID == "sess-1" &&
				e.Session.Identity.ID == "user-1" &&
				e.Session.Identity.EmailVerified
		})).Return()

		handler := NewEventsHandler(publisher)
		rec, err := postEvent(t, handler, `{
			"event": "signed_in",
			"session": {
				"id": "sess-1",
				"expiresAt": "2026-10-20T10:00:00Z",
				"identity": {"id": "user-1", "email": "desk@clinic.example", "emailVerified": true}
			}
		}`)

		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		publisher.AssertExpectations(t)
	})

	t.Run("null session is a signed out event", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		publisher.On("Publish", domain.AuthEvent{Kind: domain.EventSignedOut}).Return()

		handler := NewEventsHandler(publisher)
		rec, err := postEvent(t, handler, `{"event": "SIGNED_OUT", "session": null}`)

		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		publisher.AssertExpectations(t)
	})

	t.Run("unknown event kind is rejected", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		handler := NewEventsHandler(publisher)

		_, err := postEvent(t, handler, `{"event": "PASSWORD_RECOVERY"}`)

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		publisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("session without identity is rejected", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		handler := NewEventsHandler(publisher)

		_, err := postEvent(t, handler, `{"event": "TOKEN_REFRESHED", "session": {"id": "sess-1"}}`)

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		assert.Contains(t, httpErr.Message, "identity")
		publisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("invalid email is rejected", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		handler := NewEventsHandler(publisher)

		_, err := postEvent(t, handler, `{
			"event": "USER_UPDATED",
			"session": {"id": "sess-1", "identity": {"id": "user-1", "email": "not-an-email"}}
		}`)

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		handler := NewEventsHandler(publisher)

		_, err := postEvent(t, handler, `{"event":`)

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}
