package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/auth"
)

type refreshFixture struct {
	issuer    *auth.Issuer
	users     *MockUserResolver
	sessions  *MockSessionStore
	validator *auth.RefreshValidator
	userID    uuid.UUID
	token     string
	hash      string
}

func newRefreshFixture(t *testing.T) *refreshFixture {
	t.Helper()

	issuer, err := auth.NewIssuer(newTestConfig())
	require.NoError(t, err)

	userID := uuid.New()

	pair, err := issuer.Issue(userID.String())
	require.NoError(t, err)

	hash, err := auth.HashRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	users := &MockUserResolver{}
	sessions := &MockSessionStore{}

	return &refreshFixture{
		issuer:    issuer,
		users:     users,
		sessions:  sessions,
		validator: auth.NewRefreshValidator(issuer, users, sessions),
		userID:    userID,
		token:     pair.RefreshToken,
		hash:      hash,
	}
}

func (f *refreshFixture) activeUser() *auth.User {
	return &auth.User{
		ID:       f.userID,
		Username: "tester",
		Email:    "tester@example.com",
		Active:   true,
	}
}

func (f *refreshFixture) session(hash string) *auth.Session {
	return &auth.Session{
		ID:        uuid.New(),
		UserID:    f.userID,
		TokenHash: hash,
		Active:    true,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestRefreshHappyPath(t *testing.T) {
	f := newRefreshFixture(t)

	f.sessions.On("ListActive", mock.Anything, f.userID).
		Return([]*auth.Session{f.session(f.hash)}, nil)
	f.users.On("GetByIdentifier", mock.Anything, f.userID.String()).
		Return(f.activeUser(), nil)

	access, err := f.validator.Validate(context.Background(), f.token)
	require.NoError(t, err)

	claims, err := f.issuer.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, f.userID.String(), claims.UserID())

	f.sessions.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestRefreshIsRepeatable(t *testing.T) {
	f := newRefreshFixture(t)

	f.sessions.On("ListActive", mock.Anything, f.userID).
		Return([]*auth.Session{f.session(f.hash)}, nil)
	f.users.On("GetByIdentifier", mock.Anything, f.userID.String()).
		Return(f.activeUser(), nil)

	// No rotation: the same refresh token works again while its session
	// remains active.
	first, err := f.validator.Validate(context.Background(), f.token)
	require.NoError(t, err)
	second, err := f.validator.Validate(context.Background(), f.token)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
}

func TestRefreshRejectsBadSignature(t *testing.T) {
	f := newRefreshFixture(t)

	other := newTestConfig()
	other.refreshKey = "some-other-refresh-key"
	forger, err := auth.NewIssuer(other)
	require.NoError(t, err)

	pair, err := forger.Issue(f.userID.String())
	require.NoError(t, err)

	_, err = f.validator.Validate(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	// The session store is never consulted for a token that fails the
	// signature gate.
	f.sessions.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newRefreshFixture(t)

	access, err := f.issuer.IssueAccess(f.userID.String())
	require.NoError(t, err)

	_, err = f.validator.Validate(context.Background(), access)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestRefreshNoActiveSessions(t *testing.T) {
	f := newRefreshFixture(t)

	f.sessions.On("ListActive", mock.Anything, f.userID).
		Return([]*auth.Session{}, nil)

	_, err := f.validator.Validate(context.Background(), f.token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestRefreshNoMatchingSession(t *testing.T) {
	f := newRefreshFixture(t)

	otherHash, err := auth.HashRefreshToken("a-token-from-another-login")
	require.NoError(t, err)

	f.sessions.On("ListActive", mock.Anything, f.userID).
		Return([]*auth.Session{f.session(otherHash)}, nil)

	_, err = f.validator.Validate(context.Background(), f.token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestRefreshScanSkipsCorruptHash(t *testing.T) {
	f := newRefreshFixture(t)

	corrupt := f.session("garbage-not-bcrypt")
	good := f.session(f.hash)

	f.sessions.On("ListActive", mock.Anything, f.userID).
		Return([]*auth.Session{corrupt, good}, nil)
	f.users.On("GetByIdentifier", mock.Anything, f.userID.String()).
		Return(f.activeUser(), nil)

	// A corrupt stored hash earlier in the scan must not mask the match.
	access, err := f.validator.Validate(context.Background(), f.token)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
}

func TestRefreshDeactivatedAccountInvalidatesSession(t *testing.T) {
	f := newRefreshFixture(t)

	session := f.session(f.hash)
	user := f.activeUser()
	user.Active = false

	f.sessions.On("ListActive", mock.Anything, f.userID).
		Return([]*auth.Session{session}, nil)
	f.users.On("GetByIdentifier", mock.Anything, f.userID.String()).
		Return(user, nil)
	f.sessions.On("Invalidate", mock.Anything, session.ID).
		Return(nil)

	_, err := f.validator.Validate(context.Background(), f.token)
	assert.ErrorIs(t, err, auth.ErrAccountDeactivated)

	f.sessions.AssertCalled(t, "Invalidate", mock.Anything, session.ID)
}

func TestRefreshUnknownUser(t *testing.T) {
	f := newRefreshFixture(t)

	f.sessions.On("ListActive", mock.Anything, f.userID).
		Return([]*auth.Session{f.session(f.hash)}, nil)
	f.users.On("GetByIdentifier", mock.Anything, f.userID.String()).
		Return(nil, auth.ErrAccountNotFound)

	_, err := f.validator.Validate(context.Background(), f.token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}
