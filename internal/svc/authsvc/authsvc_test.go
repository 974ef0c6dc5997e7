package authsvc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/database/dbtest"
	"github.com/mkrupp/webgallery/internal/repo/session"
	"github.com/mkrupp/webgallery/internal/repo/user"
	"github.com/mkrupp/webgallery/internal/svc/authsvc"
	"github.com/mkrupp/webgallery/internal/util/clock"
)

// mockUserRepository implements user.Repository for testing.
type mockUserRepository struct {
	users map[string]domain.User
	err   error
	m     sync.Mutex
}

func newMockUserRepo() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]domain.User)}
}

func (m *mockUserRepository) CreateUser(_ context.Context, u domain.User) error {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return m.err
	}

	if _, exists := m.users[u.Username]; exists {
		return domain.ErrUserAlreadyExists
	}

	m.users[u.Username] = u

	return nil
}

func (m *mockUserRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, bool, error) {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return nil, false, m.err
	}

	u, exists := m.users[username]
	if !exists {
		return nil, false, nil
	}

	return &u, true, nil
}

func (m *mockUserRepository) ListUsernames(context.Context) ([]string, error) {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	names := make([]string, 0, len(m.users))
	for name := range m.users {
		names = append(names, name)
	}

	return names, nil
}

func (m *mockUserRepository) tamper(username string, fn func(*domain.User)) {
	m.m.Lock()
	defer m.m.Unlock()

	u := m.users[username]
	fn(&u)
	m.users[username] = u
}

var errRepo = errors.Join(domain.ErrStorage, errors.New("repository error"))

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func testConfig() authsvc.AuthConfig {
	return authsvc.AuthConfig{
		Hash: authsvc.HashConfig{
			Time:      1,
			MemoryKiB: 1024,
			Threads:   1,
			KeyLength: 32,
			SaltSize:  16,
		},
		SessionDuration:   7 * 24 * time.Hour,
		MaxUsernameLength: 64,
	}
}

func newCredentialStore(t *testing.T, repo user.Repository) *authsvc.CredentialStore {
	t.Helper()

	store, err := authsvc.NewCredentialStore(func() (user.Repository, error) { return repo, nil },
		testConfig(), clock.NewMonotonic())
	if err != nil {
		t.Fatalf("NewCredentialStore() error = %v", err)
	}

	return store
}

type sqlFixture struct {
	auth  *authsvc.AuthService
	clock *fakeClock
}

func newSQLFixture(t *testing.T, cfg authsvc.AuthConfig) sqlFixture {
	t.Helper()

	db := dbtest.Open(t)
	clk := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	credentials, err := authsvc.NewCredentialStore(user.SQLUserRepositoryFactory(db), cfg, clock.NewMonotonic())
	if err != nil {
		t.Fatalf("NewCredentialStore() error = %v", err)
	}

	sessions, err := authsvc.NewSessionManager(session.SQLSessionRepositoryFactory(db), cfg, clk.Now, nil)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	return sqlFixture{auth: authsvc.NewAuthService(credentials, sessions), clock: clk}
}
