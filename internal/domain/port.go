package domain

import "context"

// AuthEventSource delivers authentication events to subscribers.
type AuthEventSource interface {
	Subscribe(handler func(AuthEvent)) (unsubscribe func())
}

// IdentityLookup returns the identity of the current session, or nil when signed out.
type IdentityLookup interface {
	CurrentIdentity(ctx context.Context) (*UserIdentity, error)
}

// StatusClassifier resolves an identity into its access status.
type StatusClassifier interface {
	Classify(ctx context.Context, identity *UserIdentity) (*UserStatus, error)
}

// ProfileRepository reads clinic profiles.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// StatusTokenIssuer signs tokens describing a settled status for downstream guards.
type StatusTokenIssuer interface {
	IssueStatusToken(status UserStatus) (string, error)
}

// StatusCache is the single-entry status cache owned by the verifier.
type StatusCache interface {
	// Lookup returns the cached status for userID. A cached status stored
	// without a user ID matches any real user ID, which is then adopted.
	Lookup(userID string) (*UserStatus, bool)
	Store(userID string, status UserStatus)
	Clear()
	Entry() CacheEntry
}
