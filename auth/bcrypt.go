package auth

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost factor used for user passwords.
// Override before constructing repositories when the deployment config
// specifies a different cost.
var PasswordHashCost = 14

// refreshHashCost is deliberately lower than the password cost: refresh
// tokens are high-entropy signed tokens, and the validator compares each
// candidate session hash in sequence on every refresh.
const refreshHashCost = bcrypt.DefaultCost

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// HashRefreshToken produces a salted one-way hash of a refresh token for
// session storage. Tokens are digested first because bcrypt only reads 72
// bytes of input and signed tokens are longer than that.
func HashRefreshToken(token string) (string, error) {
	if token == "" {
		return "", ErrNoEmptyString
	}

	digest := sha256.Sum256([]byte(token))
	h, err := bcrypt.GenerateFromPassword(digest[:], refreshHashCost)
	return string(h), err
}

// CompareRefreshTokenAndHash validates a presented refresh token against a
// stored session hash using bcrypt's constant-time comparison. Returns
// ErrTokenInvalid on mismatch; any other error indicates a corrupt or
// unreadable stored hash.
func CompareRefreshTokenAndHash(token, hash string) error {
	digest := sha256.Sum256([]byte(token))
	if err := bcrypt.CompareHashAndPassword([]byte(hash), digest[:]); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrTokenInvalid
		}
		return err
	}
	return nil
}
