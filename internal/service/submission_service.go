package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pledgecam/pledgecam-api/internal/models"
	"github.com/pledgecam/pledgecam-api/internal/repository"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
	"github.com/pledgecam/pledgecam-api/pkg/jobs"
)

type submissionRepository interface {
	MarkSubmitted(ctx context.Context, id, celebrity, videoRef string) error
}

type fileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

type cleanupEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type rosterInvalidator interface {
	InvalidateGrade(ctx context.Context, grade models.Grade)
}

// SubmitVideoRequest carries the validated multipart fields of an upload.
type SubmitVideoRequest struct {
	StudentID string       `validate:"required"`
	Name      string       `validate:"required"`
	Grade     models.Grade `validate:"required"`
	Celebrity string       `validate:"required"`
}

// Upload describes the received video artifact.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SubmissionResult reports the stored file back to the client.
type SubmissionResult struct {
	Filename string `json:"filename"`
	VideoRef string `json:"videoRef"`
}

// SubmissionConfig tunes upload acceptance.
type SubmissionConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	Grades           []string
}

// CleanupJobType labels orphaned-file deletion jobs on the cleanup queue.
const CleanupJobType = "delete-orphaned-upload"

// SubmissionService executes the submission transaction: durable file write
// first, then the at-most-once roster update, then cache invalidation. A
// failed roster update hands the already-written file to the cleanup queue.
type SubmissionService struct {
	repo      submissionRepository
	store     fileStore
	cleanup   cleanupEnqueuer
	roster    rosterInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	config    SubmissionConfig
	now       func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(repo submissionRepository, store fileStore, cleanup cleanupEnqueuer, roster rosterInvalidator, validate *validator.Validate, logger *zap.Logger, config SubmissionConfig) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 50 * 1024 * 1024
	}
	if len(config.AllowedMIMEs) == 0 {
		config.AllowedMIMEs = []string{"video/webm", "video/mp4", "video/quicktime"}
	}
	return &SubmissionService{
		repo:      repo,
		store:     store,
		cleanup:   cleanup,
		roster:    roster,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Submit validates the request, stores the video durably and marks the
// student as submitted. No roster mutation happens unless the file write
// succeeded first.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitVideoRequest, upload Upload) (*SubmissionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing submission fields")
	}
	if upload.Body == nil || upload.Filename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no video file uploaded")
	}
	if len(s.config.Grades) > 0 && !req.Grade.IsValid(s.config.Grades) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown grade %q", req.Grade))
	}
	if upload.Size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "video file too large")
	}
	if !s.mimeAllowed(upload.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("unsupported video type %q", upload.ContentType))
	}

	filename := s.buildFilename(req, upload.Filename)

	videoRef, err := s.store.SaveStream(filename, upload.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store video")
	}

	if err := s.repo.MarkSubmitted(ctx, req.StudentID, req.Celebrity, videoRef); err != nil {
		s.discardOrphan(videoRef)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if errors.Is(err, repository.ErrAlreadySubmitted) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already submitted a video")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}

	if s.roster != nil {
		s.roster.InvalidateGrade(ctx, req.Grade)
	}

	s.logger.Info("video submission recorded",
		zap.String("student_id", req.StudentID),
		zap.String("grade", string(req.Grade)),
		zap.String("video_ref", videoRef),
	)
	return &SubmissionResult{Filename: filename, VideoRef: videoRef}, nil
}

func (s *SubmissionService) mimeAllowed(contentType string) bool {
	base := contentType
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(strings.ToLower(base))
	for _, allowed := range s.config.AllowedMIMEs {
		if base == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// buildFilename derives a collision-free stored name from sanitized student
// attributes, the student id and a timestamp.
func (s *SubmissionService) buildFilename(req SubmitVideoRequest, original string) string {
	ext := filepath.Ext(original)
	if ext == "" {
		ext = ".webm"
	}
	parts := []string{
		sanitizeFilePart(req.Name),
		sanitizeFilePart(string(req.Grade)),
		sanitizeFilePart(req.Celebrity),
		sanitizeFilePart(req.StudentID),
		fmt.Sprintf("%d", s.now().UTC().Unix()),
	}
	return strings.Join(parts, "_") + ext
}

func (s *SubmissionService) discardOrphan(videoRef string) {
	if s.cleanup == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    CleanupJobType,
		Ref:     videoRef,
	}
	if err := s.cleanup.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue orphan cleanup", zap.String("video_ref", videoRef), zap.Error(err))
	}
}

func sanitizeFilePart(raw string) string {
	lowered := strings.ToLower(raw)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "unnamed"
	}
	return out
}
