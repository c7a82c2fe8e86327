package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pledgecam/pledgecam-api/internal/models"
)

// PledgeRepository reads the seeded pledge catalogue.
type PledgeRepository struct {
	db *sqlx.DB
}

// NewPledgeRepository constructs a PledgeRepository.
func NewPledgeRepository(db *sqlx.DB) *PledgeRepository {
	return &PledgeRepository{db: db}
}

// FindByCode fetches the pledge carrying the given code. Callers map
// sql.ErrNoRows to a not-found outcome.
func (r *PledgeRepository) FindByCode(ctx context.Context, code string) (*models.Pledge, error) {
	const query = `SELECT id, pledge_code, pledge_text FROM pledges WHERE pledge_code = $1`
	var pledge models.Pledge
	if err := r.db.GetContext(ctx, &pledge, query, code); err != nil {
		return nil, err
	}
	return &pledge, nil
}

// List returns every pledge, ordered by code.
func (r *PledgeRepository) List(ctx context.Context) ([]models.Pledge, error) {
	pledges := []models.Pledge{}
	if err := r.db.SelectContext(ctx, &pledges, "SELECT id, pledge_code, pledge_text FROM pledges ORDER BY pledge_code ASC"); err != nil {
		return nil, fmt.Errorf("list pledges: %w", err)
	}
	return pledges, nil
}

// Create inserts a pledge. Used by the seeder.
func (r *PledgeRepository) Create(ctx context.Context, pledge *models.Pledge) error {
	if pledge.ID == "" {
		pledge.ID = uuid.NewString()
	}
	const query = `INSERT INTO pledges (id, pledge_code, pledge_text) VALUES (:id, :pledge_code, :pledge_text)`
	if _, err := r.db.NamedExecContext(ctx, query, pledge); err != nil {
		return fmt.Errorf("create pledge: %w", err)
	}
	return nil
}
