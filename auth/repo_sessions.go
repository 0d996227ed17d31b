package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions is the persistence surface for refresh sessions.
type Sessions interface {
	repository.Repository[*Session]

	Start(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time, meta SessionMetadata) (*Session, error)
	StartTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, tokenHash string, expiresAt time.Time, meta SessionMetadata) (*Session, error)

	ListActive(ctx context.Context, userID uuid.UUID) ([]*Session, error)

	Invalidate(ctx context.Context, id uuid.UUID) error
	InvalidateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	InvalidateAll(ctx context.Context, userID uuid.UUID) error
	InvalidateAllTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type sessions struct {
	repository.Repository[*Session]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Sessions                        = (*sessions)(nil)
	_ repository.Repository[*Session] = (*sessions)(nil)
)

type SessionsOption func(*sessions)

// WithSessionsClock overrides the time source, used in tests
func WithSessionsClock(now func() time.Time) SessionsOption {
	return func(s *sessions) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSessionsRepository(db *bun.DB, opts ...SessionsOption) Sessions {
	repo := repository.NewRepository[*Session](db, repository.ModelHandlers[*Session]{
		NewRecord: func() *Session { return &Session{} },
		GetID: func(s *Session) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Session, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	repoSessions := &sessions{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoSessions)
		}
	}

	return repoSessions
}

func (a *sessions) Start(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time, meta SessionMetadata) (*Session, error) {
	return a.StartTx(ctx, a.db, userID, tokenHash, expiresAt, meta)
}

func (a *sessions) StartTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, tokenHash string, expiresAt time.Time, meta SessionMetadata) (*Session, error) {
	record := &Session{
		ID:         uuid.New(),
		UserID:     userID,
		TokenHash:  tokenHash,
		Active:     true,
		ExpiresAt:  expiresAt,
		RemoteAddr: meta.RemoteAddr,
		UserAgent:  meta.UserAgent,
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

// ListActive returns the sessions a presented refresh token could belong
// to: still flagged active and not yet past their expiry. Expired rows are
// excluded here so the token scan never considers them.
func (a *sessions) ListActive(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	records := []*Session{}

	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.is_active = TRUE").
		Where("?TableAlias.expires_at > ?", a.now()).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *sessions) Invalidate(ctx context.Context, id uuid.UUID) error {
	return a.InvalidateTx(ctx, a.db, id)
}

// InvalidateTx flips the active flag off. Invalidating an already inactive
// or missing session is not an error, the end state is the same.
func (a *sessions) InvalidateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewRaw(`
		UPDATE "sessions" AS "ses"
		SET
			"is_active" = FALSE,
			"updated_at" = ?
		WHERE
			("ses".id = ?);
	`, a.now(), id).Exec(ctx)

	return err
}

func (a *sessions) InvalidateAll(ctx context.Context, userID uuid.UUID) error {
	return a.InvalidateAllTx(ctx, a.db, userID)
}

func (a *sessions) InvalidateAllTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewRaw(`
		UPDATE "sessions" AS "ses"
		SET
			"is_active" = FALSE,
			"updated_at" = ?
		WHERE
			("ses".user_id = ?)
			AND "ses"."is_active" = TRUE;
	`, a.now(), userID).Exec(ctx)

	return err
}
