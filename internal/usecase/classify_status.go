package usecase

import (
	"context"
	"errors"
	"log/slog"

	"status-hub/internal/domain"
	"status-hub/utils/logger"
)

// ClassifyStatus resolves an identity and its clinic profile into a UserStatus.
// Implements domain.StatusClassifier.
type ClassifyStatus struct {
	profiles domain.ProfileRepository
	logger   *slog.Logger
}

// NewClassifyStatus creates a new ClassifyStatus usecase.
func NewClassifyStatus(p domain.ProfileRepository, l *slog.Logger) *ClassifyStatus {
	return &ClassifyStatus{profiles: p, logger: l}
}

// Classify returns the access status for identity. A nil identity is
// unauthenticated. Profile store failures are returned to the caller.
func (uc *ClassifyStatus) Classify(ctx context.Context, identity *domain.UserIdentity) (*domain.UserStatus, error) {
	if identity == nil || identity.ID == "" {
		status := domain.UnauthenticatedStatus()
		return &status, nil
	}

	ctx = logger.WithUserID(ctx, identity.ID)
	status := &domain.UserStatus{IsAuthenticated: true}

	if !identity.EmailVerified {
		status.NeedsEmailConfirmation = true
		status.User = &domain.Profile{ID: identity.ID, Email: identity.Email}
		return status, nil
	}

	profile, err := uc.profiles.GetProfile(ctx, identity.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		uc.logger.InfoContext(ctx, "no profile yet")
		status.NeedsProfileCompletion = true
		status.User = &domain.Profile{ID: identity.ID, Email: identity.Email}
		return status, nil
	}

	if profile.Email == "" {
		profile.Email = identity.Email
	}
	status.User = profile

	switch {
	case profile.FullName == "" || !profile.HasRole():
		status.NeedsProfileCompletion = true
	case !profile.Approved && *profile.Role != domain.RoleAdmin:
		status.NeedsApproval = true
	default:
		status.CanAccessDashboard = true
	}

	return status, nil
}
