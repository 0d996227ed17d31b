package plans

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Plan is a generated study plan owned by a user.
type Plan struct {
	bun.BaseModel `bun:"table:plans,alias:pln"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Topic         string     `bun:"topic,notnull" json:"topic"`
	Title         string     `bun:"title,notnull" json:"title"`
	Steps         []Step     `bun:"steps,type:jsonb" json:"steps"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Step is one unit of work inside a plan.
type Step struct {
	Order       int    `json:"order"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Done        bool   `json:"done"`
}
