package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Active        bool       `bun:"is_active" json:"is_active"`
	EmailVerified bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	LoggedInAt    *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Session represents one issued refresh token. The raw token is never
// persisted, only a salted one-way hash; a stolen session table does not
// yield usable tokens.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull" json:"-"`
	Active        bool       `bun:"is_active" json:"is_active"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RemoteAddr    string     `bun:"remote_addr" json:"remote_addr,omitempty"`
	UserAgent     string     `bun:"user_agent" json:"user_agent,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Usable reports whether the session may still be exchanged for access
// tokens. Both conditions are hard gates for the refresh validator.
func (s *Session) Usable(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Active && now.Before(s.ExpiresAt)
}
