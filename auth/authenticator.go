package auth

import (
	"context"
	"reflect"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Auther implements the Authenticator interface on top of the identity
// provider, the token issuer, and the session store.
type Auther struct {
	provider     IdentityProvider
	issuer       *Issuer
	refresher    *RefreshValidator
	registrar    *RegisterUserHandler
	sessions     SessionStore
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, issuer *Issuer, repo RepositoryManager) *Auther {
	return &Auther{
		provider:     provider,
		issuer:       issuer,
		refresher:    NewRefreshValidator(issuer, repo.Users(), repo.Sessions()),
		registrar:    NewRegisterUserHandler(repo),
		sessions:     repo.Sessions(),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.refresher.WithLogger(logger)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	s.refresher.WithActivitySink(sink)
	return s
}

var _ Authenticator = (*Auther)(nil)

// Login verifies credentials, mints a token pair, and opens a session
// holding the hash of the refresh token.
func (s *Auther) Login(ctx context.Context, identifier, password string, meta SessionMetadata) (Identity, TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, TokenPair{}, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": identifier,
		})
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, identity, meta)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, TokenPair{}, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return identity, pair, nil
}

// Register creates the account and immediately logs it in, returning the
// same shape as Login so clients treat both flows identically.
func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage, meta SessionMetadata) (Identity, TokenPair, error) {
	user, err := s.registrar.Execute(ctx, msg)
	if err != nil {
		s.logger.Error("Register error: %v", err)
		return nil, TokenPair{}, err
	}

	identity := newAuthIdentity(user)

	pair, err := s.openSession(ctx, identity, meta)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.emitAuthEvent(ctx, ActivityEventRegistration, identity.ID(), map[string]any{
		"email": user.Email,
	})

	return identity, pair, nil
}

func (s *Auther) openSession(ctx context.Context, identity Identity, meta SessionMetadata) (TokenPair, error) {
	pair, err := s.issuer.Issue(identity.ID())
	if err != nil {
		return TokenPair{}, err
	}

	hash, err := HashRefreshToken(pair.RefreshToken)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, errors.CategoryInternal, "failed to hash refresh token")
	}

	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return TokenPair{}, errors.Wrap(err, errors.CategoryInternal, "identity has a malformed id")
	}

	expiresAt := time.Now().Add(s.issuer.RefreshTokenTTL())
	if _, err := s.sessions.Start(ctx, userID, hash, expiresAt, meta); err != nil {
		return TokenPair{}, errors.Wrap(err, errors.CategoryInternal, "failed to persist session")
	}

	return pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.refresher.Validate(ctx, refreshToken)
}

// Logout invalidates the session matching the presented refresh token, or
// every session for the user when no token is given. Logout never fails
// the caller over server-side state: an unknown or already retired token
// still counts as logged out.
func (s *Auther) Logout(ctx context.Context, userID, refreshToken string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}

	if refreshToken == "" {
		if err := s.sessions.InvalidateAll(ctx, uid); err != nil {
			s.logger.Error("Logout invalidate all sessions error: %v", err)
		}
		s.emitAuthEvent(ctx, ActivityEventLogout, userID, map[string]any{"scope": "all"})
		return nil
	}

	session, err := s.refresher.matchSession(ctx, uid, refreshToken)
	if err != nil {
		s.logger.Debug("Logout session match failed: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLogout, userID, nil)
		return nil
	}

	if err := s.sessions.Invalidate(ctx, session.ID); err != nil {
		s.logger.Error("Logout invalidate session error: %v", err)
		return nil
	}

	s.emitAuthEvent(ctx, ActivityEventSessionInvalidated, userID, map[string]any{
		"session_id": session.ID.String(),
	})

	return nil
}

// IdentityByID resolves the identity behind a verified access token.
func (s *Auther) IdentityByID(ctx context.Context, id string) (Identity, error) {
	return s.provider.FindIdentityByIdentifier(ctx, id)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
