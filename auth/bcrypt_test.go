package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/auth"
)

func TestHashPassword(t *testing.T) {
	orig := auth.PasswordHashCost
	auth.PasswordHashCost = 4
	defer func() { auth.PasswordHashCost = orig }()

	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, auth.ComparePasswordAndHash("correct horse battery staple", hash))
	assert.ErrorIs(t, auth.ComparePasswordAndHash("wrong password", hash), auth.ErrInvalidCredentials)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := auth.HashPassword("")
	assert.ErrorIs(t, err, auth.ErrNoEmptyString)
}

func TestRefreshTokenHashing(t *testing.T) {
	// Signed tokens run far past bcrypt's 72 byte input limit; the digest
	// step has to make length irrelevant.
	token := strings.Repeat("eyJhbGciOiJIUzI1NiJ9.", 20)
	require.Greater(t, len(token), 72)

	hash, err := auth.HashRefreshToken(token)
	require.NoError(t, err)

	assert.NoError(t, auth.CompareRefreshTokenAndHash(token, hash))
	assert.ErrorIs(t, auth.CompareRefreshTokenAndHash(token+"x", hash), auth.ErrTokenInvalid)
}

func TestRefreshTokenHashingRejectsEmpty(t *testing.T) {
	_, err := auth.HashRefreshToken("")
	assert.ErrorIs(t, err, auth.ErrNoEmptyString)
}

func TestCompareRefreshTokenCorruptHash(t *testing.T) {
	err := auth.CompareRefreshTokenAndHash("some-token", "not-a-bcrypt-hash")
	require.Error(t, err)
	// Corrupt stored hashes are an infrastructure problem, not a mismatch.
	assert.NotErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestHashRefreshTokenSalted(t *testing.T) {
	a, err := auth.HashRefreshToken("same-token")
	require.NoError(t, err)
	b, err := auth.HashRefreshToken("same-token")
	require.NoError(t, err)

	// Salting means equal tokens never share a stored hash, which is why
	// the refresh validator has to scan candidates instead of looking the
	// hash up directly.
	assert.NotEqual(t, a, b)
	assert.NoError(t, auth.CompareRefreshTokenAndHash("same-token", a))
	assert.NoError(t, auth.CompareRefreshTokenAndHash("same-token", b))
}
