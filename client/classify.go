package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/planora/planora/auth"
)

// AuthError is the classified form every failure is reduced to before it
// reaches application code. Kind values come from the shared taxonomy in
// the auth package, so a kind serialized by the server round-trips intact.
type AuthError struct {
	Kind       auth.Kind
	Message    string
	RetryAfter time.Duration
	cause      error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind
}

func (e *AuthError) Unwrap() error {
	return e.cause
}

// Retryable reports whether a retry could plausibly succeed. Only
// transport failures and server faults qualify; everything else needs a
// different request, not the same one again.
func (e *AuthError) Retryable() bool {
	return e.Kind == auth.KindNetworkError || e.Kind == auth.KindServerError
}

// errorBody is the error envelope the auth endpoints serialize.
type errorBody struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	RetryAfter int    `json:"retry_after"`
}

// classifyTransport wraps an error raised before any response arrived.
func classifyTransport(err error) *AuthError {
	return &AuthError{
		Kind:    auth.KindNetworkError,
		Message: err.Error(),
		cause:   err,
	}
}

// classifyResponse turns a non-2xx response into an AuthError. The kind
// sent by the server wins; when the body cannot be decoded the status
// code alone drives classification.
func classifyResponse(resp *http.Response, body []byte) *AuthError {
	out := &AuthError{
		Kind: auth.KindFromStatus(resp.StatusCode),
	}

	var decoded errorBody
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Kind != "" {
			out.Kind = decoded.Kind
		}
		out.Message = decoded.Error
		if decoded.RetryAfter > 0 {
			out.RetryAfter = time.Duration(decoded.RetryAfter) * time.Second
		}
	}

	if out.RetryAfter == 0 {
		if seconds, err := time.ParseDuration(resp.Header.Get("Retry-After") + "s"); err == nil && seconds > 0 {
			out.RetryAfter = seconds
		}
	}

	return out
}

// AsAuthError extracts the classified error, wrapping anything foreign as
// an unknown kind so callers always have a Kind to branch on.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}

	if ae, ok := err.(*AuthError); ok {
		return ae
	}

	return &AuthError{
		Kind:    auth.KindUnknownError,
		Message: err.Error(),
		cause:   err,
	}
}
