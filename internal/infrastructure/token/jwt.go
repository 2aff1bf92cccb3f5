package token

import (
	"fmt"
	"time"

	"status-hub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds JWT generation configuration.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// statusClaims is what downstream route guards read from the status token.
type statusClaims struct {
	Email              string `json:"email"`
	Role               string `json:"role"`
	CanAccessDashboard bool   `json:"can_access_dashboard"`
	jwt.RegisteredClaims
}

// JWTIssuer signs status tokens.
// Implements domain.StatusTokenIssuer.
type JWTIssuer struct {
	cfg JWTConfig
}

// NewJWTIssuer creates a new JWT issuer.
func NewJWTIssuer(cfg JWTConfig) *JWTIssuer {
	return &JWTIssuer{cfg: cfg}
}

// IssueStatusToken signs a token for a status that has a resolved user.
func (j *JWTIssuer) IssueStatusToken(status domain.UserStatus) (string, error) {
	if status.User == nil {
		return "", fmt.Errorf("%w: status has no user", domain.ErrTokenGeneration)
	}

	role := ""
	if status.User.HasRole() {
		role = string(*status.User.Role)
	}

	now := time.Now()
	claims := statusClaims{
		Email:              status.User.Email,
		Role:               role,
		CanAccessDashboard: status.CanAccessDashboard,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Audience:  jwt.ClaimStrings{j.cfg.Audience},
			Subject:   status.User.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
	}
	return signed, nil
}
