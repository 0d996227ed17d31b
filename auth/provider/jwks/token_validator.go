package jwks

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/planora/planora/auth"
)

// Config for a JWKS-backed validator. Used when access tokens are issued
// by an external identity provider instead of the local issuer.
type Config struct {
	// JWKSetURLs lists one or more JWK Set endpoints tried in order.
	JWKSetURLs []string
	// Issuer, when set, is enforced against the iss claim.
	Issuer string
	// RefreshInterval controls background key refreshes. Defaults to 1h.
	RefreshInterval time.Duration
}

// TokenValidator validates externally issued JWTs against a JWK Set.
type TokenValidator struct {
	config  Config
	keyfunc jwt.Keyfunc
}

// NewTokenValidator creates a validator backed by the configured JWK Sets.
func NewTokenValidator(cfg Config) (*TokenValidator, error) {
	if len(cfg.JWKSetURLs) == 0 {
		return nil, fmt.Errorf("jwks: at least one JWK Set URL is required")
	}

	refreshInterval := cfg.RefreshInterval
	if refreshInterval == 0 {
		refreshInterval = time.Hour
	}

	opts := keyfunc.Options{
		RefreshInterval:   refreshInterval,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	var kf jwt.Keyfunc
	if len(cfg.JWKSetURLs) == 1 {
		jwks, err := keyfunc.Get(cfg.JWKSetURLs[0], opts)
		if err != nil {
			return nil, fmt.Errorf("jwks: failed to get JWK Set: %w", err)
		}
		kf = jwks.Keyfunc
	} else {
		m := make(map[string]keyfunc.Options, len(cfg.JWKSetURLs))
		for _, url := range cfg.JWKSetURLs {
			m[url] = opts
		}
		multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
			KeySelector: keyfunc.KeySelectorFirst,
		})
		if err != nil {
			return nil, fmt.Errorf("jwks: failed to get JWK Sets: %w", err)
		}
		kf = multi.Keyfunc
	}

	return &TokenValidator{
		config:  cfg,
		keyfunc: kf,
	}, nil
}

// Validate implements auth.TokenValidator.
func (v *TokenValidator) Validate(tokenString string) (auth.AuthClaims, error) {
	claims := &auth.TokenClaims{}

	parserOpts := []jwt.ParserOption{}
	if v.config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc, parserOpts...)
	if err != nil {
		return nil, normalizeValidationError(err)
	}

	if !token.Valid {
		return nil, auth.ErrTokenInvalid
	}

	return claims, nil
}

func normalizeValidationError(err error) error {
	if err == nil {
		return nil
	}

	clone := auth.ErrTokenInvalid.Clone()
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		clone = auth.ErrTokenExpired.Clone()
	}

	if clone == nil {
		return err
	}

	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"provider": "jwks",
		"cause":    err.Error(),
	})
}
