package handler

import (
	"context"
	"sync"

	"status-hub/internal/domain"
	"status-hub/internal/usecase"

	"github.com/stretchr/testify/mock"
)

// fakeStatusProvider implements StatusProvider for testing.
type fakeStatusProvider struct {
	mu          sync.Mutex
	snapshot    usecase.StatusSnapshot
	refreshed   domain.UserStatus
	refreshes   int
	subscribers []func(usecase.StatusSnapshot)
	subscribed  chan struct{}
}

func (f *fakeStatusProvider) Snapshot() usecase.StatusSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeStatusProvider) Subscribe(fn func(usecase.StatusSnapshot)) func() {
	f.mu.Lock()
	f.subscribers = append(f.subscribers, fn)
	ch := f.subscribed
	f.mu.Unlock()

	if ch != nil {
		close(ch)
	}
	return func() {}
}

func (f *fakeStatusProvider) Refresh(_ context.Context) domain.UserStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	f.snapshot = usecase.StatusSnapshot{Status: f.refreshed}
	return f.refreshed
}

func (f *fakeStatusProvider) publish(snap usecase.StatusSnapshot) {
	f.mu.Lock()
	f.snapshot = snap
	subs := append([]func(usecase.StatusSnapshot){}, f.subscribers...)
	f.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// MockTokenIssuer is a mock implementation of domain.StatusTokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueStatusToken(status domain.UserStatus) (string, error) {
	args := m.Called(status)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event domain.AuthEvent) {
	m.Called(event)
}

func grantedStatus(userID string, role domain.Role) domain.UserStatus {
	return domain.UserStatus{
		IsAuthenticated:    true,
		CanAccessDashboard: true,
		User: &domain.Profile{
			ID:       userID,
			Email:    userID + "@clinic.example",
			FullName: "Front Desk",
			Role:     &role,
			Approved: true,
		},
	}
}
