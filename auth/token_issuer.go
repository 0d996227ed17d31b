package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Issuer mints and verifies the two token classes. Access and refresh
// tokens are signed with independent secrets so a leaked access secret
// never lets an attacker forge refresh tokens.
type Issuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	logger     Logger
	now        func() time.Time
}

// IssuerOption configures an Issuer
type IssuerOption func(*Issuer)

// WithIssuerLogger sets the logger instance
func WithIssuerLogger(logger Logger) IssuerOption {
	return func(i *Issuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithIssuerClock overrides the time source, used in tests
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer builds a token issuer from config. Missing signing secrets
// return ErrServerConfiguration; callers are expected to treat that as
// fatal during startup rather than booting a half-configured service.
func NewIssuer(cfg Config, opts ...IssuerOption) (*Issuer, error) {
	if cfg == nil {
		return nil, ErrServerConfiguration
	}

	if cfg.GetAccessSigningKey() == "" || cfg.GetRefreshSigningKey() == "" {
		return nil, ErrServerConfiguration
	}

	i := &Issuer{
		accessKey:  []byte(cfg.GetAccessSigningKey()),
		refreshKey: []byte(cfg.GetRefreshSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		logger:     defLogger{},
		now:        time.Now,
	}

	if i.accessTTL <= 0 {
		i.accessTTL = 168 * time.Hour
	}

	if i.refreshTTL <= 0 {
		i.refreshTTL = 720 * time.Hour
	}

	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// Issue mints a matched access and refresh token pair for the given user.
func (i *Issuer) Issue(userID string) (TokenPair, error) {
	access, err := i.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := i.sign(userID, TokenTypeRefresh, i.refreshTTL, i.refreshKey)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess mints a standalone access token, used by the refresh flow
// which rotates access tokens without touching the session.
func (i *Issuer) IssueAccess(userID string) (string, error) {
	return i.sign(userID, TokenTypeAccess, i.accessTTL, i.accessKey)
}

// RefreshTokenTTL exposes the configured refresh lifetime so session rows
// can carry a matching expiry.
func (i *Issuer) RefreshTokenTTL() time.Duration {
	return i.refreshTTL
}

func (i *Issuer) sign(userID, tokenType string, ttl time.Duration, key []byte) (string, error) {
	now := i.now()

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:  userID,
		Type: tokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token").
			WithTextCode(KindServerError)
	}

	return signed, nil
}

// VerifyAccess parses and verifies an access token
func (i *Issuer) VerifyAccess(tokenString string) (*TokenClaims, error) {
	return i.verify(tokenString, TokenTypeAccess, i.accessKey)
}

// VerifyRefresh parses and verifies a refresh token
func (i *Issuer) VerifyRefresh(tokenString string) (*TokenClaims, error) {
	return i.verify(tokenString, TokenTypeRefresh, i.refreshKey)
}

func (i *Issuer) verify(tokenString, wantType string, key []byte) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return key, nil
	}, jwt.WithTimeFunc(i.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		i.logger.Debug("token verification failed: %v", err)
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	// A refresh token presented where an access token is expected (or the
	// reverse) is rejected even though the signature checks out.
	if claims.Type != wantType {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Validate satisfies the TokenValidator interface using the access secret.
func (i *Issuer) Validate(tokenString string) (AuthClaims, error) {
	return i.VerifyAccess(tokenString)
}
