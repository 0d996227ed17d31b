package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

// Kind is the closed classification vocabulary shared by the server
// responses and the API client. The string values travel on the wire as
// error text codes, so both sides agree on a single enumeration.
type Kind = string

const (
	KindNetworkError       Kind = "NETWORK_ERROR"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindAccountNotFound    Kind = "ACCOUNT_NOT_FOUND"
	KindAccountDeactivated Kind = "ACCOUNT_DEACTIVATED"
	KindValidationError    Kind = "VALIDATION_ERROR"
	KindTokenExpired       Kind = "TOKEN_EXPIRED"
	KindTokenInvalid       Kind = "TOKEN_INVALID"
	KindTokenRefreshFailed Kind = "TOKEN_REFRESH_FAILED"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindServerError        Kind = "SERVER_ERROR"
	KindUnknownError       Kind = "UNKNOWN_ERROR"
)

// ErrInvalidCredentials covers bad password, unknown identifier, and any
// other credential failure. Lookup misses and hash mismatches share one
// error on purpose so responses do not leak which gate failed.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(KindInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound is returned when a bearer token references a user
// record that no longer exists.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(KindAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrAccountDeactivated is returned when the owning account is disabled.
var ErrAccountDeactivated = errors.New("account has been deactivated", errors.CategoryAuth).
	WithTextCode(KindAccountDeactivated).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens that fail the time gate.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(KindTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalid collapses signature failures, malformed claims, missing
// sessions, and hash mismatches into a single generic answer.
var ErrTokenInvalid = errors.New("token is invalid", errors.CategoryAuth).
	WithTextCode(KindTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRefreshFailed wraps infrastructure failures during the refresh
// flow that are not the caller's fault.
var ErrTokenRefreshFailed = errors.New("unable to refresh session", errors.CategoryInternal).
	WithTextCode(KindTokenRefreshFailed)

// ErrRateLimited is returned when a source address exhausts its request
// budget for the current window.
var ErrRateLimited = errors.New("too many requests, slow down", errors.CategoryRateLimit).
	WithTextCode(KindRateLimited)

// ErrDuplicateAccount is returned when registration collides with an
// existing email or username.
var ErrDuplicateAccount = errors.New("an account with that email or username already exists", errors.CategoryConflict).
	WithTextCode(KindValidationError).
	WithCode(errors.CodeConflict)

// ErrServerConfiguration is returned when a signing secret is missing.
// Callers must treat it as fatal at process start, never per request.
var ErrServerConfiguration = errors.New("authentication signing secrets are not configured", errors.CategoryInternal).
	WithTextCode(KindServerError)

// ErrNoEmptyString guards password hashing against empty input.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(KindValidationError).
	WithCode(errors.CodeBadRequest)

// KindOf extracts the classification kind from an error, defaulting to
// KindUnknownError for anything outside the taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}

	return KindUnknownError
}

// KindFromStatus classifies an HTTP status code at the response boundary.
// Used by callers that only see a status, e.g. when the response body
// could not be decoded.
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindInvalidCredentials
	case status == http.StatusForbidden:
		return KindAccountDeactivated
	case status == http.StatusNotFound:
		return KindAccountNotFound
	case status == http.StatusConflict,
		status == http.StatusBadRequest,
		status == http.StatusUnprocessableEntity:
		return KindValidationError
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServerError
	default:
		return KindUnknownError
	}
}

// StatusForError maps a classified error to the HTTP status the auth
// endpoints answer with. Category drives the mapping so wrapped errors
// keep their original classification.
func StatusForError(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return http.StatusUnauthorized
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusUnprocessableEntity
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
