package auth_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/planora/planora/auth"
)

// stubUsers embeds the interface so only RegisterTx needs an
// implementation.
type stubUsers struct {
	auth.Users

	registerErr error
}

func (s stubUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return user, nil
}

type stubRepo struct {
	auth.RepositoryManager

	users stubUsers
}

func (s stubRepo) Users() auth.Users { return s.users }

func (s stubRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func newRegisterHandler(registerErr error) *auth.RegisterUserHandler {
	return auth.NewRegisterUserHandler(stubRepo{users: stubUsers{registerErr: registerErr}})
}

func withFastHashing(t *testing.T) {
	t.Helper()
	previous := auth.PasswordHashCost
	auth.PasswordHashCost = 4
	t.Cleanup(func() { auth.PasswordHashCost = previous })
}

func TestRegisterUserHashesPasswordAndDefaultsUsername(t *testing.T) {
	withFastHashing(t)

	handler := newRegisterHandler(nil)

	user, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "newbie@example.com",
		Password: "a-long-enough-password",
	})
	require.NoError(t, err)

	assert.Equal(t, "newbie", user.Username, "username falls back to the email prefix")
	assert.True(t, user.Active)
	assert.NotEqual(t, "a-long-enough-password", user.PasswordHash)
	assert.NoError(t, auth.ComparePasswordAndHash("a-long-enough-password", user.PasswordHash))
}

func TestRegisterUserUniqueViolationIsConflict(t *testing.T) {
	withFastHashing(t)

	handler := newRegisterHandler(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"))

	_, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "taken@example.com",
		Password: "a-long-enough-password",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrDuplicateAccount)
}

func TestRegisterUserInfrastructureFailureIsNotConflict(t *testing.T) {
	withFastHashing(t)

	handler := newRegisterHandler(errors.New("database is locked"))

	_, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "unlucky@example.com",
		Password: "a-long-enough-password",
	})
	require.Error(t, err)

	// A transient failure must not read as "account exists".
	assert.NotErrorIs(t, err, auth.ErrDuplicateAccount)
	assert.Equal(t, 500, auth.StatusForError(err))
}
