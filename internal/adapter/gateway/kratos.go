package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"status-hub/internal/domain"

	kratos "github.com/ory/kratos-client-go"
)

// KratosGateway reads the terminal's session from the Kratos frontend API.
// Implements domain.IdentityLookup.
type KratosGateway struct {
	client       *kratos.APIClient
	sessionToken string
}

// NewKratosGateway creates a new Kratos gateway with tuned HTTP transport.
func NewKratosGateway(baseURL, sessionToken string, timeout time.Duration) *KratosGateway {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: baseURL},
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	configuration.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	return &KratosGateway{
		client:       kratos.NewAPIClient(configuration),
		sessionToken: sessionToken,
	}
}

// CurrentSession returns the active session for the configured session token.
func (g *KratosGateway) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if g.sessionToken == "" {
		return nil, domain.ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	session, resp, err := g.client.FrontendAPI.ToSession(ctx).XSessionToken(g.sessionToken).Execute()
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized, http.StatusGone:
				return nil, domain.ErrSessionExpired
			case http.StatusForbidden:
				return nil, domain.ErrSessionInactive
			}
			return nil, fmt.Errorf("%w: kratos returned status %d", domain.ErrIdentityProviderUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityProviderUnavailable, err)
	}

	if session.Active != nil && !*session.Active {
		return nil, domain.ErrSessionInactive
	}

	if session.Identity == nil {
		return nil, domain.ErrMissingIdentity
	}

	out := &domain.Session{
		ID:       session.Id,
		Identity: toUserIdentity(session.Identity),
	}
	if session.ExpiresAt != nil {
		out.ExpiresAt = *session.ExpiresAt
	}
	if session.AuthenticatedAt != nil {
		out.AuthenticatedAt = *session.AuthenticatedAt
	}
	if session.Identity.UpdatedAt != nil {
		out.IdentityUpdatedAt = *session.Identity.UpdatedAt
	}
	return out, nil
}

// CurrentIdentity returns the identity behind the current session.
func (g *KratosGateway) CurrentIdentity(ctx context.Context) (*domain.UserIdentity, error) {
	session, err := g.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	return session.Identity, nil
}

func toUserIdentity(identity *kratos.Identity) *domain.UserIdentity {
	email := ""
	if traits, ok := identity.Traits.(map[string]interface{}); ok {
		if emailVal, ok := traits["email"]; ok {
			if emailStr, ok := emailVal.(string); ok {
				email = emailStr
			}
		}
	}

	verified := false
	for _, addr := range identity.VerifiableAddresses {
		if addr.Value == email && addr.Verified {
			verified = true
			break
		}
	}

	return &domain.UserIdentity{
		ID:            identity.Id,
		Email:         email,
		EmailVerified: verified,
	}
}
