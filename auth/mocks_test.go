package auth_test

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/planora/planora/auth"
)

// testConfig implements auth.Config
type testConfig struct {
	accessKey  string
	refreshKey string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTestConfig() testConfig {
	return testConfig{
		accessKey:  "test-access-signing-key",
		refreshKey: "test-refresh-signing-key",
		accessTTL:  168 * time.Hour,
		refreshTTL: 720 * time.Hour,
	}
}

func (c testConfig) GetAccessSigningKey() string       { return c.accessKey }
func (c testConfig) GetRefreshSigningKey() string      { return c.refreshKey }
func (c testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
func (c testConfig) GetIssuer() string                 { return "planora-test" }
func (c testConfig) GetAuthScheme() string             { return "Bearer" }
func (c testConfig) GetContextKey() string             { return "auth_claims" }
func (c testConfig) GetPasswordHashCost() int          { return 4 }
func (c testConfig) GetRateLimitBudget() int           { return 5 }
func (c testConfig) GetRateLimitWindow() time.Duration { return time.Minute }

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) { m.Called(format, args) }
func (m *MockLogger) Info(format string, args ...any)  { m.Called(format, args) }
func (m *MockLogger) Warn(format string, args ...any)  { m.Called(format, args) }
func (m *MockLogger) Error(format string, args ...any) { m.Called(format, args) }

// MockUserResolver implements auth.UserResolver
type MockUserResolver struct {
	mock.Mock
}

func (m *MockUserResolver) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

// MockSessionStore implements auth.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Start(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time, meta auth.SessionMetadata) (*auth.Session, error) {
	args := m.Called(ctx, userID, tokenHash, expiresAt, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockSessionStore) ListActive(ctx context.Context, userID uuid.UUID) ([]*auth.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auth.Session), args.Error(1)
}

func (m *MockSessionStore) Invalidate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionStore) InvalidateAll(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, identifier, password string, meta auth.SessionMetadata) (auth.Identity, auth.TokenPair, error) {
	args := m.Called(ctx, identifier, password, meta)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Get(1).(auth.TokenPair), args.Error(2)
}

func (m *MockAuthenticator) Register(ctx context.Context, msg auth.RegisterUserMessage, meta auth.SessionMetadata) (auth.Identity, auth.TokenPair, error) {
	args := m.Called(ctx, msg, meta)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Get(1).(auth.TokenPair), args.Error(2)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Logout(ctx context.Context, userID, refreshToken string) error {
	args := m.Called(ctx, userID, refreshToken)
	return args.Error(0)
}

func (m *MockAuthenticator) IdentityByID(ctx context.Context, id string) (auth.Identity, error) {
	args := m.Called(ctx, id)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

// testIdentity implements auth.Identity
type testIdentity struct {
	id       string
	username string
	email    string
	verified bool
}

func (t testIdentity) ID() string       { return t.id }
func (t testIdentity) Username() string { return t.username }
func (t testIdentity) Email() string    { return t.email }
func (t testIdentity) Verified() bool   { return t.verified }
