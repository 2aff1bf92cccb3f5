package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"status-hub/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DatabaseIface is the subset of pgxpool.Pool the repository needs.
type DatabaseIface interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const getProfileQuery = `
	SELECT id, email, full_name, phone, role, is_approved
	FROM profiles
	WHERE id = $1`

// ProfileRepository reads clinic profiles from PostgreSQL.
// Implements domain.ProfileRepository.
type ProfileRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(db DatabaseIface, logger *slog.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger.With("component", "profile_repository"),
	}
}

// GetProfile returns the profile of userID, or domain.ErrProfileNotFound.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a uuid", domain.ErrInvalidUserID, userID)
	}

	var (
		profileID                    uuid.UUID
		email, fullName, phone, role *string
		approved                     bool
	)

	err = r.db.QueryRow(ctx, getProfileQuery, id).Scan(
		&profileID,
		&email,
		&fullName,
		&phone,
		&role,
		&approved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		r.logger.ErrorContext(ctx, "failed to load profile", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrProfileStoreUnavailable, err)
	}

	profile := &domain.Profile{
		ID:       profileID.String(),
		Email:    deref(email),
		FullName: deref(fullName),
		Phone:    deref(phone),
		Approved: approved,
	}
	if role != nil && *role != "" {
		resolved := domain.Role(*role)
		if resolved.Valid() {
			profile.Role = &resolved
		} else {
			r.logger.WarnContext(ctx, "profile has unknown role", "role", *role)
		}
	}

	return profile, nil
}

// HealthCheck pings the database.
func (r *ProfileRepository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.db.Ping(ctx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
