package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-classroom-auth"
)

const testSecret = "test-signing-secret-with-enough-bytes"

// MockUsers implements auth.Users for testing
type MockUsers struct {
	mock.Mock
}

var _ auth.Users = (*MockUsers)(nil)

func (m *MockUsers) user(args mock.Arguments) (*auth.User, error) {
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.User, error) {
	return m.user(m.Called(ctx, tx, id))
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	return m.user(m.Called(ctx, identifier))
}

func (m *MockUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*auth.User, error) {
	return m.user(m.Called(ctx, tx, identifier))
}

func (m *MockUsers) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	if fn, ok := args.Get(0).(func(context.Context, *auth.User) *auth.User); ok {
		return fn(ctx, user), args.Error(1)
	}
	return m.user(args)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	return m.user(m.Called(ctx, tx, user))
}

func (m *MockUsers) SelectRole(ctx context.Context, id uuid.UUID, role auth.UserRole) (*auth.User, error) {
	return m.user(m.Called(ctx, id, role))
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUsers) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *auth.User) error {
	return m.Called(ctx, tx, user).Error(0)
}

func (m *MockUsers) UpdateStatus(ctx context.Context, id uuid.UUID, status auth.UserStatus) (*auth.User, error) {
	return m.user(m.Called(ctx, id, status))
}

func (m *MockUsers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status auth.UserStatus) (*auth.User, error) {
	return m.user(m.Called(ctx, tx, id, status))
}

func (m *MockUsers) Block(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUsers) Unblock(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.user(m.Called(ctx, id))
}

// testConfig implements auth.Config
type testConfig struct {
	secret   string
	hours    int
	extended int
	issuer   string
	audience []string
	cookie   string
	secure   bool
	sameSite string
}

func newTestConfig() *testConfig {
	return &testConfig{
		secret:   testSecret,
		hours:    24,
		extended: 720,
		issuer:   "classroom-auth",
		audience: []string{"classroom"},
		cookie:   "classroom_session",
		sameSite: "Lax",
	}
}

func (c *testConfig) GetSigningKey() string         { return c.secret }
func (c *testConfig) GetTokenExpiration() int       { return c.hours }
func (c *testConfig) GetExtendedTokenDuration() int { return c.extended }
func (c *testConfig) GetIssuer() string             { return c.issuer }
func (c *testConfig) GetAudience() []string         { return c.audience }
func (c *testConfig) GetCookieName() string         { return c.cookie }
func (c *testConfig) GetCookieSecure() bool         { return c.secure }
func (c *testConfig) GetCookieSameSite() string     { return c.sameSite }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// recordingSink collects activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, evt auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) Last() auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return auth.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

// memoryRevocations is an in-process auth.RevocationStore.
type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: map[string]time.Time{}}
}

func (m *memoryRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.revoked[id] = until
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[id]
	return ok, nil
}

func (m *memoryRevocations) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *memoryRevocations) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.revoked)
}

// newActiveUser returns an active user whose password is "password123".
func newActiveUser(role auth.UserRole) *auth.User {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		panic(err)
	}
	return &auth.User{
		ID:           uuid.New(),
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		Role:         role,
		Status:       auth.UserStatusActive,
		PasswordHash: hash,
	}
}
