package client

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/planora/planora/auth"
)

// DefaultMaxRetries bounds retries after the initial attempt, so a fully
// exhausted action makes DefaultMaxRetries+1 requests.
const DefaultMaxRetries = 3

// Orchestrator drives the client-side auth lifecycle: it owns the state
// machine, serializes concurrent attempts, retries transient failures
// with backoff, and keeps the token store in sync.
type Orchestrator struct {
	api        *API
	store      TokenStore
	state      *stateHolder
	backoff    Backoff
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
	group      singleflight.Group
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithBackoff overrides the retry schedule.
func WithBackoff(b Backoff) OrchestratorOption {
	return func(o *Orchestrator) {
		o.backoff = b
	}
}

// WithMaxRetries bounds retries per action. Zero disables retrying.
func WithMaxRetries(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// NewOrchestrator wires the API client and token store together.
func NewOrchestrator(api *API, store TokenStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		api:        api,
		store:      store,
		state:      newStateHolder(),
		backoff:    NewBackoff(),
		maxRetries: DefaultMaxRetries,
		sleep:      sleepCtx,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// State returns a snapshot of the current auth state.
func (o *Orchestrator) State() State {
	return o.state.get()
}

// ClearError drops the last failure without touching the rest of the
// state, e.g. when the user dismisses an error banner.
func (o *Orchestrator) ClearError() {
	o.state.update(func(s *State) {
		s.LastError = nil
		if s.Status == StatusFailed {
			s.Status = StatusIdle
		}
	})
}

// Login authenticates with credentials. Concurrent calls with the same
// credentials coalesce into one request.
func (o *Orchestrator) Login(ctx context.Context, creds Credentials) (State, error) {
	return o.run(ctx, "login:"+creds.Identifier, func(ctx context.Context) (*AuthResult, error) {
		return o.api.Login(ctx, creds)
	})
}

// Register creates an account and enters the authenticated state.
func (o *Orchestrator) Register(ctx context.Context, reg Registration) (State, error) {
	return o.run(ctx, "register:"+reg.Email, func(ctx context.Context) (*AuthResult, error) {
		return o.api.Register(ctx, reg)
	})
}

func (o *Orchestrator) run(ctx context.Context, key string, attempt func(ctx context.Context) (*AuthResult, error)) (State, error) {
	res, err, _ := o.group.Do(key, func() (any, error) {
		o.state.update(func(s *State) {
			s.Status = StatusInFlight
			s.LastError = nil
		})

		result, err := o.withRetries(ctx, attempt)
		if err != nil {
			authErr := AsAuthError(err)
			o.state.update(func(s *State) {
				s.Status = StatusFailed
				s.LastError = authErr
			})
			return nil, authErr
		}

		// Persistence is best effort: the session is live server-side
		// even if saving tokens failed, the next startup just re-logins.
		_ = o.store.Save(result.TokenPair())

		o.state.update(func(s *State) {
			user := result.User
			s.Status = StatusSucceeded
			s.User = &user
		})

		return o.state.get(), nil
	})

	if err != nil {
		return o.state.get(), err
	}

	return res.(State), nil
}

// withRetries runs the attempt up to maxRetries+1 times, pausing per the
// backoff schedule. Only transient failures are retried.
func (o *Orchestrator) withRetries(ctx context.Context, attempt func(ctx context.Context) (*AuthResult, error)) (*AuthResult, error) {
	var lastErr error

	for n := 0; n <= o.maxRetries; n++ {
		if n > 0 {
			if err := o.sleep(ctx, o.backoff.Delay(n-1)); err != nil {
				return nil, AsAuthError(err)
			}
		}

		result, err := attempt(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !AsAuthError(err).Retryable() {
			break
		}
	}

	return nil, lastErr
}

// Refresh exchanges the stored refresh token for a new access token and
// persists the updated pair. Single-flighted so overlapping expired-token
// handlers trigger one exchange. Like login and register, the attempt
// drives the state machine; a terminal rejection also drops the stored
// tokens, they can never be exchanged again.
func (o *Orchestrator) Refresh(ctx context.Context) (string, error) {
	res, err, _ := o.group.Do("refresh", func() (any, error) {
		pair, err := o.store.Load()
		if err != nil || pair.RefreshToken == "" {
			return "", AsAuthError(auth.ErrTokenInvalid)
		}

		o.state.update(func(s *State) {
			s.Status = StatusInFlight
			s.LastError = nil
		})

		access, err := o.refreshWithRetries(ctx, pair.RefreshToken)
		if err != nil {
			authErr := AsAuthError(err)
			if !authErr.Retryable() {
				_ = o.store.Clear()
			}
			o.state.update(func(s *State) {
				s.Status = StatusFailed
				s.LastError = authErr
			})
			return "", authErr
		}

		pair.AccessToken = access
		_ = o.store.Save(pair)

		o.state.update(func(s *State) {
			s.Status = StatusSucceeded
		})

		return access, nil
	})

	if err != nil {
		return "", err
	}

	return res.(string), nil
}

func (o *Orchestrator) refreshWithRetries(ctx context.Context, refreshToken string) (string, error) {
	var lastErr error

	for n := 0; n <= o.maxRetries; n++ {
		if n > 0 {
			if err := o.sleep(ctx, o.backoff.Delay(n-1)); err != nil {
				return "", AsAuthError(err)
			}
		}

		access, err := o.api.Refresh(ctx, refreshToken)
		if err == nil {
			return access, nil
		}

		lastErr = err
		if !AsAuthError(err).Retryable() {
			break
		}
	}

	return "", lastErr
}

// Logout clears local state unconditionally. The server call is best
// effort: a dead network or a 500 still leaves the client logged out.
func (o *Orchestrator) Logout(ctx context.Context) error {
	var serverErr error

	if pair, err := o.store.Load(); err == nil && pair.RefreshToken != "" {
		serverErr = o.api.Logout(ctx, pair.AccessToken, pair.RefreshToken)
	}

	if err := o.store.Clear(); err != nil && serverErr == nil {
		serverErr = err
	}

	o.state.update(func(s *State) {
		s.Status = StatusIdle
		s.User = nil
		s.LastError = nil
	})

	return serverErr
}

// Bootstrap attempts a silent re-auth from stored tokens on startup. A
// missing or rejected token is not an error to surface, the client simply
// starts signed out; Refresh already dropped the stale tokens, so only
// the failed state it left behind needs settling back to idle.
func (o *Orchestrator) Bootstrap(ctx context.Context) State {
	pair, err := o.store.Load()
	if err != nil || pair.RefreshToken == "" {
		return o.state.get()
	}

	access, err := o.Refresh(ctx)
	if err != nil {
		return o.state.update(func(s *State) {
			s.Status = StatusIdle
			s.User = nil
			s.LastError = nil
		})
	}

	user, err := o.api.Me(ctx, access)
	if err != nil {
		return o.state.get()
	}

	return o.state.update(func(s *State) {
		s.Status = StatusSucceeded
		s.User = user
		s.LastError = nil
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
