package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/pledgecam/pledgecam-api/internal/models"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
)

type pledgeRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Pledge, error)
}

// PledgeService resolves pledge texts for the wizard.
type PledgeService struct {
	repo   pledgeRepository
	logger *zap.Logger
}

// NewPledgeService constructs the pledge service.
func NewPledgeService(repo pledgeRepository, logger *zap.Logger) *PledgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PledgeService{repo: repo, logger: logger}
}

// GetByCode returns the pledge for a code, or a not-found error when no
// pledge carries that code.
func (s *PledgeService) GetByCode(ctx context.Context, code string) (*models.Pledge, error) {
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pledge code is required")
	}
	pledge, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pledge not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pledge")
	}
	return pledge, nil
}
