package client

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/auth"
)

func response(status int, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{StatusCode: status, Header: h}
}

func TestClassifyTransport(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	ae := classifyTransport(cause)

	assert.Equal(t, auth.KindNetworkError, ae.Kind)
	assert.True(t, ae.Retryable())
	assert.ErrorIs(t, ae, cause)
}

func TestClassifyResponsePrefersServerKind(t *testing.T) {
	body := []byte(`{"error":"token is expired","kind":"TOKEN_EXPIRED"}`)

	// The status alone would classify as invalid credentials; the kind
	// serialized by the server is more precise and wins.
	ae := classifyResponse(response(http.StatusUnauthorized, nil), body)
	assert.Equal(t, auth.KindTokenExpired, ae.Kind)
	assert.Equal(t, "token is expired", ae.Message)
	assert.False(t, ae.Retryable())
}

func TestClassifyResponseFallsBackToStatus(t *testing.T) {
	tests := []struct {
		status int
		want   auth.Kind
	}{
		{http.StatusUnauthorized, auth.KindInvalidCredentials},
		{http.StatusForbidden, auth.KindAccountDeactivated},
		{http.StatusNotFound, auth.KindAccountNotFound},
		{http.StatusConflict, auth.KindValidationError},
		{http.StatusTooManyRequests, auth.KindRateLimited},
		{http.StatusInternalServerError, auth.KindServerError},
	}

	for _, tt := range tests {
		ae := classifyResponse(response(tt.status, nil), []byte("not json"))
		assert.Equal(t, tt.want, ae.Kind, "status %d", tt.status)
	}
}

func TestClassifyResponseRetryAfter(t *testing.T) {
	body := []byte(`{"error":"too many requests","kind":"RATE_LIMITED","retry_after":42}`)

	ae := classifyResponse(response(http.StatusTooManyRequests, nil), body)
	assert.Equal(t, auth.KindRateLimited, ae.Kind)
	assert.Equal(t, 42*time.Second, ae.RetryAfter)
}

func TestClassifyResponseRetryAfterHeader(t *testing.T) {
	ae := classifyResponse(response(http.StatusTooManyRequests, map[string]string{
		"Retry-After": "17",
	}), []byte(`{}`))

	assert.Equal(t, 17*time.Second, ae.RetryAfter)
}

func TestRetryableKinds(t *testing.T) {
	retryable := []auth.Kind{auth.KindNetworkError, auth.KindServerError}
	terminal := []auth.Kind{
		auth.KindInvalidCredentials,
		auth.KindAccountNotFound,
		auth.KindAccountDeactivated,
		auth.KindValidationError,
		auth.KindTokenExpired,
		auth.KindTokenInvalid,
		auth.KindTokenRefreshFailed,
		auth.KindRateLimited,
		auth.KindUnknownError,
	}

	for _, k := range retryable {
		assert.True(t, (&AuthError{Kind: k}).Retryable(), k)
	}
	for _, k := range terminal {
		assert.False(t, (&AuthError{Kind: k}).Retryable(), k)
	}
}

func TestAsAuthError(t *testing.T) {
	ae := &AuthError{Kind: auth.KindServerError}
	assert.Same(t, ae, AsAuthError(ae))

	wrapped := AsAuthError(errors.New("something odd"))
	require.NotNil(t, wrapped)
	assert.Equal(t, auth.KindUnknownError, wrapped.Kind)

	assert.Nil(t, AsAuthError(nil))
}
