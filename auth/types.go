package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Verified() bool
}

// Config holds auth options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAuthScheme() string
	GetContextKey() string
	GetPasswordHashCost() int
	GetRateLimitBudget() int
	GetRateLimitWindow() time.Duration
}

// SessionMetadata carries optional client attribution persisted with a
// session row.
type SessionMetadata struct {
	RemoteAddr string
	UserAgent  string
}

// TokenPair is the result of a successful login or registration.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthClaims represents verified token claims without tying callers to a
// specific signing implementation.
type AuthClaims interface {
	Subject() string
	UserID() string
	TokenType() string
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenValidator validates raw bearer tokens and extracts claims. Both the
// local Issuer and the external JWKS provider implement it, selected at
// configuration time.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrTokenInvalid
	}
	return f(tokenString)
}

// IdentityProvider ensures we have a store to retrieve auth identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// Authenticator holds the operations the HTTP boundary needs.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string, meta SessionMetadata) (Identity, TokenPair, error)
	Register(ctx context.Context, msg RegisterUserMessage, meta SessionMetadata) (Identity, TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	IdentityByID(ctx context.Context, id string) (Identity, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
