package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// UserResolver is the slice of the users repository the auth flows need.
type UserResolver interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
}

// SessionStore is the slice of the sessions repository the auth flows
// need, satisfied by the full Sessions interface.
type SessionStore interface {
	Start(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time, meta SessionMetadata) (*Session, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]*Session, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
	InvalidateAll(ctx context.Context, userID uuid.UUID) error
}

// RefreshValidator exchanges a refresh token for a new access token. The
// presented token only proves anything once every gate passes: signature
// and expiry, an active session whose stored hash matches, and an account
// that is still active. Refresh tokens are never rotated here, the same
// token stays valid until its session expires or is invalidated.
type RefreshValidator struct {
	issuer       *Issuer
	users        UserResolver
	sessions     SessionStore
	logger       Logger
	activitySink ActivitySink
}

// NewRefreshValidator will create a new RefreshValidator
func NewRefreshValidator(issuer *Issuer, users UserResolver, sessions SessionStore) *RefreshValidator {
	return &RefreshValidator{
		issuer:       issuer,
		users:        users,
		sessions:     sessions,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (v *RefreshValidator) WithLogger(logger Logger) *RefreshValidator {
	if logger != nil {
		v.logger = logger
	}
	return v
}

func (v *RefreshValidator) WithActivitySink(sink ActivitySink) *RefreshValidator {
	v.activitySink = normalizeActivitySink(sink)
	return v
}

// Validate runs the full gate sequence and mints a fresh access token.
func (v *RefreshValidator) Validate(ctx context.Context, refreshToken string) (string, error) {
	claims, err := v.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		v.emit(ctx, "", map[string]any{"gate": "token", "error": err.Error()})
		return "", err
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		v.emit(ctx, claims.UserID(), map[string]any{"gate": "subject"})
		return "", ErrTokenInvalid
	}

	session, err := v.matchSession(ctx, userID, refreshToken)
	if err != nil {
		v.emit(ctx, userID.String(), map[string]any{"gate": "session", "error": err.Error()})
		return "", err
	}

	user, err := v.users.GetByIdentifier(ctx, userID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			v.emit(ctx, userID.String(), map[string]any{"gate": "account"})
			return "", ErrTokenInvalid
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to load user during refresh").
			WithTextCode(KindTokenRefreshFailed)
	}

	if !user.Active {
		// A deactivated account retires the session on the spot so the
		// token cannot be replayed once the account is reinstated.
		if err := v.sessions.Invalidate(ctx, session.ID); err != nil {
			v.logger.Error("failed to invalidate session for deactivated account: %v", err)
		}
		v.emit(ctx, userID.String(), map[string]any{
			"gate":       "account",
			"session_id": session.ID.String(),
		})
		return "", ErrAccountDeactivated
	}

	access, err := v.issuer.IssueAccess(userID.String())
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to mint access token").
			WithTextCode(KindTokenRefreshFailed)
	}

	return access, nil
}

// matchSession scans the user's usable sessions for one whose stored hash
// matches the presented token. Comparisons are salted bcrypt checks, so
// every candidate has to be tried; a corrupt stored hash is logged and
// skipped rather than failing the whole scan.
func (v *RefreshValidator) matchSession(ctx context.Context, userID uuid.UUID, refreshToken string) (*Session, error) {
	candidates, err := v.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list sessions during refresh").
			WithTextCode(KindTokenRefreshFailed)
	}

	if len(candidates) == 0 {
		return nil, ErrTokenInvalid
	}

	for _, candidate := range candidates {
		err := CompareRefreshTokenAndHash(refreshToken, candidate.TokenHash)
		if err == nil {
			return candidate, nil
		}

		if !errors.Is(err, ErrTokenInvalid) {
			v.logger.Warn("unreadable session token hash, skipping: session=%s error=%v", candidate.ID, err)
		}
	}

	return nil, ErrTokenInvalid
}

func (v *RefreshValidator) emit(ctx context.Context, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  ActivityEventRefreshFailure,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(v.activitySink).Record(ctx, event); err != nil {
		v.logger.Warn("activity sink record error: %v", err)
	}
}
