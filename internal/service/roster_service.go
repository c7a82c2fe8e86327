package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pledgecam/pledgecam-api/internal/models"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
)

type rosterRepository interface {
	ListNotSubmitted(ctx context.Context, grade models.Grade) ([]models.Student, error)
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RosterConfig mirrors the configured grade set and cache tuning.
type RosterConfig struct {
	Grades   []string
	CacheTTL time.Duration
}

// RosterService answers the "who still needs to record" queries backing the
// wizard's name selector.
type RosterService struct {
	repo    rosterRepository
	cache   rosterCache
	metrics *MetricsService
	logger  *zap.Logger
	config  RosterConfig
}

// NewRosterService constructs the roster service.
func NewRosterService(repo rosterRepository, cache rosterCache, metrics *MetricsService, logger *zap.Logger, config RosterConfig) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(config.Grades) == 0 {
		config.Grades = []string{"7th", "8th"}
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &RosterService{repo: repo, cache: cache, metrics: metrics, logger: logger, config: config}
}

// Grades exposes the accepted grade labels.
func (s *RosterService) Grades() []string {
	return s.config.Grades
}

// ListNotSubmitted returns the not-yet-submitted roster, optionally filtered
// by grade. Grade values outside the configured set are rejected before any
// storage access. Cache failures degrade to direct reads.
func (s *RosterService) ListNotSubmitted(ctx context.Context, grade models.Grade) ([]models.Student, error) {
	if grade != "" && !grade.IsValid(s.config.Grades) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown grade %q", grade))
	}

	key := rosterCacheKey(grade)
	if s.cache != nil {
		var cached []models.Student
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	students, err := s.repo.ListNotSubmitted(ctx, grade)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, students, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache roster", zap.String("key", key), zap.Error(err))
		}
	}
	return students, nil
}

// InvalidateGrade drops cached rosters after a submission so the submitted
// student never reappears from a stale snapshot.
func (s *RosterService) InvalidateGrade(ctx context.Context, grade models.Grade) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{rosterCacheKey(grade), rosterCacheKey("")} {
		if err := s.cache.DeleteByPattern(ctx, key); err != nil {
			s.logger.Warn("failed to invalidate roster cache", zap.String("key", key), zap.Error(err))
		}
	}
}

func rosterCacheKey(grade models.Grade) string {
	if grade == "" {
		return "roster:grade:all"
	}
	return "roster:grade:" + string(grade)
}
