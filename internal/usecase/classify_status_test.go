package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"status-hub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProfileRepository implements domain.ProfileRepository for testing.
type mockProfileRepository struct {
	profile *domain.Profile
	err     error
	called  bool
}

func (m *mockProfileRepository) GetProfile(_ context.Context, _ string) (*domain.Profile, error) {
	m.called = true
	return m.profile, m.err
}

func rolePtr(r domain.Role) *domain.Role { return &r }

func verifiedIdentity() *domain.UserIdentity {
	return &domain.UserIdentity{ID: "user-1", Email: "front@clinic.example", EmailVerified: true}
}

func TestClassifyStatus_NilIdentity(t *testing.T) {
	repo := &mockProfileRepository{}
	uc := NewClassifyStatus(repo, slog.Default())

	status, err := uc.Classify(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, domain.UnauthenticatedStatus(), *status)
	assert.False(t, repo.called)
}

func TestClassifyStatus_UnverifiedEmail(t *testing.T) {
	repo := &mockProfileRepository{}
	uc := NewClassifyStatus(repo, slog.Default())

	status, err := uc.Classify(context.Background(), &domain.UserIdentity{ID: "user-1", Email: "x@clinic.example"})

	require.NoError(t, err)
	assert.True(t, status.IsAuthenticated)
	assert.True(t, status.NeedsEmailConfirmation)
	assert.False(t, status.CanAccessDashboard)
	assert.Equal(t, "user-1", status.User.ID)
	assert.False(t, repo.called)
}

func TestClassifyStatus_Profiles(t *testing.T) {
	tests := []struct {
		name           string
		profile        *domain.Profile
		err            error
		wantCompletion bool
		wantApproval   bool
		wantAccess     bool
	}{
		{
			name:           "profile missing",
			err:            domain.ErrProfileNotFound,
			wantCompletion: true,
		},
		{
			name:           "no full name",
			profile:        &domain.Profile{ID: "user-1", Role: rolePtr(domain.RoleProfessional), Approved: true},
			wantCompletion: true,
		},
		{
			name:           "no role",
			profile:        &domain.Profile{ID: "user-1", FullName: "Ana", Approved: true},
			wantCompletion: true,
		},
		{
			name:         "awaiting approval",
			profile:      &domain.Profile{ID: "user-1", FullName: "Ana", Role: rolePtr(domain.RoleReceptionist)},
			wantApproval: true,
		},
		{
			name:       "admin needs no approval",
			profile:    &domain.Profile{ID: "user-1", FullName: "Ana", Role: rolePtr(domain.RoleAdmin)},
			wantAccess: true,
		},
		{
			name:       "approved professional",
			profile:    &domain.Profile{ID: "user-1", FullName: "Ana", Role: rolePtr(domain.RoleProfessional), Approved: true},
			wantAccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockProfileRepository{profile: tt.profile, err: tt.err}
			uc := NewClassifyStatus(repo, slog.Default())

			status, err := uc.Classify(context.Background(), verifiedIdentity())

			require.NoError(t, err)
			assert.True(t, status.IsAuthenticated)
			assert.False(t, status.NeedsEmailConfirmation)
			assert.Equal(t, tt.wantCompletion, status.NeedsProfileCompletion)
			assert.Equal(t, tt.wantApproval, status.NeedsApproval)
			assert.Equal(t, tt.wantAccess, status.CanAccessDashboard)
			require.NotNil(t, status.User)
			assert.Equal(t, "front@clinic.example", status.User.Email)
		})
	}
}

func TestClassifyStatus_StoreError(t *testing.T) {
	storeErr := errors.Join(domain.ErrProfileStoreUnavailable, errors.New("connection reset"))
	repo := &mockProfileRepository{err: storeErr}
	uc := NewClassifyStatus(repo, slog.Default())

	status, err := uc.Classify(context.Background(), verifiedIdentity())

	assert.Nil(t, status)
	assert.True(t, errors.Is(err, domain.ErrProfileStoreUnavailable))
}

func TestClassifyStatus_InvalidUserIDIsNotProfileCompletion(t *testing.T) {
	repo := &mockProfileRepository{err: fmt.Errorf("%w: %q is not a uuid", domain.ErrInvalidUserID, "kiosk")}
	uc := NewClassifyStatus(repo, slog.Default())

	status, err := uc.Classify(context.Background(), verifiedIdentity())

	assert.Nil(t, status)
	assert.True(t, errors.Is(err, domain.ErrInvalidUserID))
}
