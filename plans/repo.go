package plans

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Plans is the persistence surface for study plans.
type Plans interface {
	repository.Repository[*Plan]

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Plan, error)
	GetOwned(ctx context.Context, userID, planID uuid.UUID) (*Plan, error)
}

type plansRepo struct {
	repository.Repository[*Plan]
	db *bun.DB
}

var _ Plans = (*plansRepo)(nil)

func NewRepository(db *bun.DB) Plans {
	repo := repository.NewRepository[*Plan](db, repository.ModelHandlers[*Plan]{
		NewRecord: func() *Plan { return &Plan{} },
		GetID: func(p *Plan) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Plan, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &plansRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *plansRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Plan, error) {
	records := []*Plan{}

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// GetOwned fetches a plan only when it belongs to the user; other users'
// plans are indistinguishable from missing ones.
func (r *plansRepo) GetOwned(ctx context.Context, userID, planID uuid.UUID) (*Plan, error) {
	record := &Plan{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", planID).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}
