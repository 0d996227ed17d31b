package client

import "sync"

// Status tracks where the orchestrator is in an auth attempt.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusInFlight  Status = "in_flight"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// User is the client-side view of an authenticated account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// State is an immutable snapshot of the orchestrator. Loading is true only
// while an attempt is in flight; LastError holds the classified failure of
// the most recent attempt and survives until the next attempt starts or
// ClearError is called.
type State struct {
	Status    Status
	User      *User
	Loading   bool
	LastError *AuthError
}

// stateHolder guards the mutable state behind a mutex and hands out
// copies so callers never observe a half-applied transition.
type stateHolder struct {
	mu    sync.RWMutex
	state State
}

func newStateHolder() *stateHolder {
	return &stateHolder{
		state: State{Status: StatusIdle},
	}
}

func (h *stateHolder) get() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *stateHolder) update(fn func(*State)) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.state)
	h.state.Loading = h.state.Status == StatusInFlight
	return h.state
}
