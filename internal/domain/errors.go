package domain

import "errors"

// Session errors. These are expected when a session ends and resolve to the
// unauthenticated status without being reported as failures.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionInactive = errors.New("session is not active")
	ErrMissingIdentity = errors.New("missing identity in session")
)

// Classification errors.
var (
	ErrClassificationTimeout   = errors.New("status classification timed out")
	ErrProfileNotFound         = errors.New("profile not found")
	ErrProfileStoreUnavailable = errors.New("profile store unavailable")
	ErrInvalidUserID           = errors.New("invalid user id")
)

// External service errors.
var (
	ErrIdentityProviderUnavailable = errors.New("identity provider unavailable")
)

// Token errors.
var (
	ErrTokenGeneration = errors.New("token generation failed")
)

// Request errors.
var (
	ErrInvalidEvent = errors.New("invalid auth event")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// IsSessionExpiry reports whether err means the session is gone rather than
// that something failed.
func IsSessionExpiry(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionInactive) ||
		errors.Is(err, ErrMissingIdentity)
}
