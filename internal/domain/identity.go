package domain

import (
	"strings"
	"time"
)

// UserIdentity represents the authenticated principal as reported by the identity provider.
type UserIdentity struct {
	ID            string
	Email         string
	EmailVerified bool
}

// Session is the identity provider session the terminal is signed in with.
type Session struct {
	ID                string
	Identity          *UserIdentity
	ExpiresAt         time.Time
	AuthenticatedAt   time.Time
	IdentityUpdatedAt time.Time
}

// EventKind is the kind of an authentication event.
type EventKind string

const (
	EventInitialSession EventKind = "INITIAL_SESSION"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventUserUpdated    EventKind = "USER_UPDATED"
)

// ParseEventKind normalises textual input into a known event kind.
// Unknown input is returned as-is and ignored by the verifier.
func ParseEventKind(value string) EventKind {
	kind := EventKind(strings.ToUpper(strings.TrimSpace(value)))
	if kind.Known() {
		return kind
	}
	return EventKind(value)
}

// Known reports whether k is one of the defined event kinds.
func (k EventKind) Known() bool {
	switch k {
	case EventInitialSession, EventSignedIn, EventSignedOut, EventTokenRefreshed, EventUserUpdated:
		return true
	default:
		return false
	}
}

// AuthEvent is a single event from the authentication event stream.
// Session is nil when the provider reports no active session.
type AuthEvent struct {
	Kind    EventKind
	Session *Session
}

// Identity returns the identity carried by the event, if any.
func (e AuthEvent) Identity() *UserIdentity {
	if e.Session == nil {
		return nil
	}
	return e.Session.Identity
}
