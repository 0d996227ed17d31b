package auth_test

import (
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	"github.com/planora/planora/auth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{"invalid credentials", auth.ErrInvalidCredentials, auth.KindInvalidCredentials},
		{"account not found", auth.ErrAccountNotFound, auth.KindAccountNotFound},
		{"account deactivated", auth.ErrAccountDeactivated, auth.KindAccountDeactivated},
		{"token expired", auth.ErrTokenExpired, auth.KindTokenExpired},
		{"token invalid", auth.ErrTokenInvalid, auth.KindTokenInvalid},
		{"refresh failed", auth.ErrTokenRefreshFailed, auth.KindTokenRefreshFailed},
		{"rate limited", auth.ErrRateLimited, auth.KindRateLimited},
		{"duplicate account", auth.ErrDuplicateAccount, auth.KindValidationError},
		{"plain error", errors.New("boom"), auth.KindUnknownError},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}

func TestKindOfWrappedError(t *testing.T) {
	wrapped := goerrors.Wrap(auth.ErrTokenExpired, goerrors.CategoryAuth, "request failed")
	assert.Equal(t, auth.KindTokenExpired, auth.KindOf(auth.ErrTokenExpired))
	assert.NotNil(t, wrapped)
}

func TestKindFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   auth.Kind
	}{
		{http.StatusUnauthorized, auth.KindInvalidCredentials},
		{http.StatusForbidden, auth.KindAccountDeactivated},
		{http.StatusNotFound, auth.KindAccountNotFound},
		{http.StatusConflict, auth.KindValidationError},
		{http.StatusBadRequest, auth.KindValidationError},
		{http.StatusUnprocessableEntity, auth.KindValidationError},
		{http.StatusTooManyRequests, auth.KindRateLimited},
		{http.StatusInternalServerError, auth.KindServerError},
		{http.StatusBadGateway, auth.KindServerError},
		{http.StatusTeapot, auth.KindUnknownError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, auth.KindFromStatus(tt.status), "status %d", tt.status)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"deactivated", auth.ErrAccountDeactivated, http.StatusUnauthorized},
		{"token expired", auth.ErrTokenExpired, http.StatusUnauthorized},
		{"not found", auth.ErrAccountNotFound, http.StatusNotFound},
		{"duplicate", auth.ErrDuplicateAccount, http.StatusConflict},
		{"validation", auth.ErrNoEmptyString, http.StatusUnprocessableEntity},
		{"rate limited", auth.ErrRateLimited, http.StatusTooManyRequests},
		{"refresh failed", auth.ErrTokenRefreshFailed, http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.StatusForError(tt.err))
		})
	}
}

func TestKindRoundTripsThroughStatus(t *testing.T) {
	// A client that only sees the status of an unauthorized response
	// still lands on a credential-shaped kind.
	status := auth.StatusForError(auth.ErrInvalidCredentials)
	assert.Equal(t, auth.KindInvalidCredentials, auth.KindFromStatus(status))
}
