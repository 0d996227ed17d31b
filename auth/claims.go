package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token classes carried in the "typ" claim. Access tokens authenticate
// requests; refresh tokens are only exchangeable for new access tokens.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the concrete implementation of AuthClaims
type TokenClaims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid,omitempty"`
	Type string `json:"typ,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID, falling back to the subject claim
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// TokenType returns the token class claim
func (c *TokenClaims) TokenType() string {
	return c.Type
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
