package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"status-hub/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"session not found", domain.ErrSessionNotFound, http.StatusUnauthorized},
		{"session expired", domain.ErrSessionExpired, http.StatusUnauthorized},
		{"session inactive", domain.ErrSessionInactive, http.StatusUnauthorized},
		{"missing identity", domain.ErrMissingIdentity, http.StatusUnauthorized},
		{"invalid event", domain.ErrInvalidEvent, http.StatusBadRequest},
		{"identity provider unavailable", domain.ErrIdentityProviderUnavailable, http.StatusBadGateway},
		{"profile store unavailable", domain.ErrProfileStoreUnavailable, http.StatusBadGateway},
		{"invalid user id", domain.ErrInvalidUserID, http.StatusInternalServerError},
		{"classification timeout", domain.ErrClassificationTimeout, http.StatusGatewayTimeout},
		{"token generation", domain.ErrTokenGeneration, http.StatusInternalServerError},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := mapDomainError(tt.err)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapDomainError_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("refresh identity: %w", domain.ErrSessionExpired)
	assert.Equal(t, http.StatusUnauthorized, mapDomainError(wrapped).Code)

	doubleWrapped := fmt.Errorf("outer: %w", wrapped)
	assert.Equal(t, http.StatusUnauthorized, mapDomainError(doubleWrapped).Code)
}

func TestMapDomainError_RateLimitedHTTPError(t *testing.T) {
	err := echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded").SetInternal(domain.ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, mapDomainError(err).Code)
}

func TestMapDomainError_InvalidEventKeepsReason(t *testing.T) {
	err := fmt.Errorf("%w: event failed auth_event", domain.ErrInvalidEvent)
	httpErr := mapDomainError(err)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Contains(t, httpErr.Message, "auth_event")
}
