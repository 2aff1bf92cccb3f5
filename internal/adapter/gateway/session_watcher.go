package gateway

import (
	"context"
	"log/slog"
	"time"

	"status-hub/internal/domain"
)

// SessionReader returns the current provider session.
type SessionReader interface {
	CurrentSession(ctx context.Context) (*domain.Session, error)
}

// EventPublisher accepts auth events.
type EventPublisher interface {
	Publish(event domain.AuthEvent)
}

// SessionWatcher polls the identity provider and publishes an auth event
// whenever the observed session changes.
type SessionWatcher struct {
	reader    SessionReader
	publisher EventPublisher
	interval  time.Duration
	logger    *slog.Logger

	started bool
	last    *domain.Session
}

// NewSessionWatcher creates a watcher polling every interval.
func NewSessionWatcher(r SessionReader, p EventPublisher, interval time.Duration, l *slog.Logger) *SessionWatcher {
	return &SessionWatcher{reader: r, publisher: p, interval: interval, logger: l}
}

// Run polls until ctx is done. The first poll happens immediately and always
// publishes INITIAL_SESSION.
func (w *SessionWatcher) Run(ctx context.Context) error {
	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *SessionWatcher) poll(ctx context.Context) {
	session, err := w.reader.CurrentSession(ctx)
	if err != nil {
		if !domain.IsSessionExpiry(err) {
			w.logger.WarnContext(ctx, "session poll failed", "error", err)
			return
		}
		session = nil
	}

	event, changed := w.diff(session)
	w.started = true
	w.last = session
	if !changed {
		return
	}

	w.logger.DebugContext(ctx, "session change observed", "event_kind", event.Kind)
	w.publisher.Publish(event)
}

// diff derives the event describing the transition from the last observed
// session to cur.
func (w *SessionWatcher) diff(cur *domain.Session) (domain.AuthEvent, bool) {
	prev := w.last

	switch {
	case !w.started:
		return domain.AuthEvent{Kind: domain.EventInitialSession, Session: cur}, true
	case prev == nil && cur == nil:
		return domain.AuthEvent{}, false
	case prev == nil:
		return domain.AuthEvent{Kind: domain.EventSignedIn, Session: cur}, true
	case cur == nil:
		return domain.AuthEvent{Kind: domain.EventSignedOut}, true
	case identityID(prev) != identityID(cur):
		return domain.AuthEvent{Kind: domain.EventSignedIn, Session: cur}, true
	case prev.ID != cur.ID || cur.ExpiresAt.After(prev.ExpiresAt):
		return domain.AuthEvent{Kind: domain.EventTokenRefreshed, Session: cur}, true
	case !cur.IdentityUpdatedAt.Equal(prev.IdentityUpdatedAt):
		return domain.AuthEvent{Kind: domain.EventUserUpdated, Session: cur}, true
	default:
		return domain.AuthEvent{}, false
	}
}

func identityID(s *domain.Session) string {
	if s == nil || s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}
