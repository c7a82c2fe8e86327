package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pledgecam/pledgecam-api/internal/models"
)

// AdminRepository manages persistence for admin accounts.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// FindByEmail fetches an admin account by email.
func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	const query = `SELECT id, email, password_hash, full_name, active, last_login, created_at, updated_at
        FROM admins WHERE email = $1`
	var admin models.AdminUser
	if err := r.db.GetContext(ctx, &admin, query, email); err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpdateLastLogin records the latest successful login time.
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE admins SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
