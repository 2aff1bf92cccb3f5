package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"status-hub/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newLimitedEcho(t *testing.T, r rate.Limit, burst int) (*echo.Echo, *RateLimiter) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rl := NewRateLimiter(ctx, "test", r, burst)
	e := echo.New()
	e.Use(rl.Middleware())
	e.POST("/refresh", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e, rl
}

func doRefresh(e *echo.Echo, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	e, _ := newLimitedEcho(t, rate.Limit(10), 10)

	assert.Equal(t, http.StatusOK, doRefresh(e, "").Code)
}

func TestRateLimiter_RejectsOverLimitWithRetryAfter(t *testing.T) {
	e, _ := newLimitedEcho(t, rate.Limit(0.5), 1)

	assert.Equal(t, http.StatusOK, doRefresh(e, "").Code)

	rec := doRefresh(e, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_RejectionWrapsDomainError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, "test", rate.Limit(0.5), 1)
	handler := rl.Middleware()(func(c echo.Context) error { return nil })

	e := echo.New()
	newContext := func() echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodPost, "/refresh", nil), httptest.NewRecorder())
	}

	require.NoError(t, handler(newContext()))
	err := handler(newContext())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}

func TestRateLimiter_DifferentIPsGetSeparateLimits(t *testing.T) {
	e, _ := newLimitedEcho(t, rate.Limit(1), 1)

	assert.Equal(t, http.StatusOK, doRefresh(e, "1.2.3.4:1234").Code)
	assert.Equal(t, http.StatusOK, doRefresh(e, "5.6.7.8:5678").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRefresh(e, "1.2.3.4:1234").Code)
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	_, rl := newLimitedEcho(t, rate.Limit(1), 1)
	now := time.Now()

	rl.limiterFor("1.2.3.4", now.Add(-10*time.Minute))
	rl.limiterFor("5.6.7.8", now)
	rl.evictIdle(now)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "1.2.3.4")
	assert.Contains(t, rl.clients, "5.6.7.8")
}

func TestRateLimiter_RetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, (&RateLimiter{rate: 10}).retryAfterSeconds())
	assert.Equal(t, 2, (&RateLimiter{rate: 0.5}).retryAfterSeconds())
	assert.Equal(t, 60, (&RateLimiter{rate: 0}).retryAfterSeconds())
}
