package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/pledgecam/pledgecam-api/internal/models"
	"github.com/pledgecam/pledgecam-api/internal/repository"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
	"github.com/pledgecam/pledgecam-api/pkg/jobs"
)

type fakeSubmissionRepo struct {
	markErr   error
	markCalls int
	lastRef   string
}

func (f *fakeSubmissionRepo) MarkSubmitted(_ context.Context, id, celebrity, videoRef string) error {
	f.markCalls++
	f.lastRef = videoRef
	return f.markErr
}

type fakeFileStore struct {
	saveErr   error
	saveCalls int
	saved     map[string][]byte
}

func (f *fakeFileStore) SaveStream(filename string, r io.Reader) (string, error) {
	f.saveCalls++
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[filename] = data
	return filename, nil
}

type fakeCleanup struct {
	jobs []jobs.Job
}

func (f *fakeCleanup) Enqueue(job jobs.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeInvalidator struct {
	grades []models.Grade
}

func (f *fakeInvalidator) InvalidateGrade(_ context.Context, grade models.Grade) {
	f.grades = append(f.grades, grade)
}

func newSubmissionFixture() (*SubmissionService, *fakeSubmissionRepo, *fakeFileStore, *fakeCleanup, *fakeInvalidator) {
	repo := &fakeSubmissionRepo{}
	store := &fakeFileStore{}
	cleanup := &fakeCleanup{}
	roster := &fakeInvalidator{}
	svc := NewSubmissionService(repo, store, cleanup, roster, validator.New(), nil, SubmissionConfig{
		MaxFileSizeBytes: 50 * 1024 * 1024,
		AllowedMIMEs:     []string{"video/webm", "video/mp4"},
		Grades:           []string{"7th", "8th"},
	})
	svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return svc, repo, store, cleanup, roster
}

func validRequest() SubmitVideoRequest {
	return SubmitVideoRequest{
		StudentID: "s-1",
		Name:      "Ava Wilson",
		Grade:     "7th",
		Celebrity: "Taylor Swift",
	}
}

func validUpload() Upload {
	data := []byte("webm-bytes")
	return Upload{
		Filename:    "pledge.webm",
		ContentType: "video/webm",
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}
}

func TestSubmissionServiceSubmit(t *testing.T) {
	svc, repo, store, _, roster := newSubmissionFixture()

	result, err := svc.Submit(context.Background(), validRequest(), validUpload())
	require.NoError(t, err)
	require.Equal(t, "ava_wilson_7th_taylor_swift_s_1_1700000000.webm", result.Filename)
	require.Equal(t, result.Filename, repo.lastRef)
	require.Contains(t, store.saved, result.Filename)
	require.Equal(t, []models.Grade{"7th"}, roster.grades)
}

func TestSubmissionServiceRejectsMissingCelebrity(t *testing.T) {
	svc, repo, store, _, _ := newSubmissionFixture()

	req := validRequest()
	req.Celebrity = ""
	_, err := svc.Submit(context.Background(), req, validUpload())
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	// Nothing touched storage or the roster before validation passed.
	require.Zero(t, store.saveCalls)
	require.Zero(t, repo.markCalls)
}

func TestSubmissionServiceRejectsMissingFile(t *testing.T) {
	svc, _, store, _, _ := newSubmissionFixture()

	_, err := svc.Submit(context.Background(), validRequest(), Upload{})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Zero(t, store.saveCalls)
}

func TestSubmissionServiceRejectsUnknownGrade(t *testing.T) {
	svc, _, store, _, _ := newSubmissionFixture()

	req := validRequest()
	req.Grade = "9th"
	_, err := svc.Submit(context.Background(), req, validUpload())
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	require.Zero(t, store.saveCalls)
}

func TestSubmissionServiceRejectsOversizeFile(t *testing.T) {
	svc, _, store, _, _ := newSubmissionFixture()

	upload := validUpload()
	upload.Size = 51 * 1024 * 1024
	_, err := svc.Submit(context.Background(), validRequest(), upload)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	require.Zero(t, store.saveCalls)
}

func TestSubmissionServiceRejectsUnsupportedMIME(t *testing.T) {
	svc, _, store, _, _ := newSubmissionFixture()

	upload := validUpload()
	upload.ContentType = "image/png"
	_, err := svc.Submit(context.Background(), validRequest(), upload)
	require.Error(t, err)
	require.Equal(t, http.StatusUnsupportedMediaType, appErrors.FromError(err).Status)
	require.Zero(t, store.saveCalls)
}

func TestSubmissionServiceAcceptsMIMEWithParameters(t *testing.T) {
	svc, _, _, _, _ := newSubmissionFixture()

	upload := validUpload()
	upload.ContentType = "video/webm; codecs=vp8,opus"
	_, err := svc.Submit(context.Background(), validRequest(), upload)
	require.NoError(t, err)
}

func TestSubmissionServiceStorageFailureDoesNotMark(t *testing.T) {
	svc, repo, store, cleanup, roster := newSubmissionFixture()
	store.saveErr = fmt.Errorf("disk full")

	_, err := svc.Submit(context.Background(), validRequest(), validUpload())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
	require.Zero(t, repo.markCalls)
	require.Empty(t, cleanup.jobs)
	require.Empty(t, roster.grades)
}

func TestSubmissionServiceUnknownStudentCleansUpFile(t *testing.T) {
	svc, repo, _, cleanup, roster := newSubmissionFixture()
	repo.markErr = sql.ErrNoRows

	_, err := svc.Submit(context.Background(), validRequest(), validUpload())
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
	// The stored file is orphaned and handed to the cleanup queue.
	require.Len(t, cleanup.jobs, 1)
	require.Equal(t, CleanupJobType, cleanup.jobs[0].Type)
	require.Equal(t, repo.lastRef, cleanup.jobs[0].Ref)
	require.Empty(t, roster.grades)
}

func TestSubmissionServiceDuplicateSubmissionConflicts(t *testing.T) {
	svc, _, _, cleanup, roster := newSubmissionFixture()
	repoErr := repository.ErrAlreadySubmitted
	svc.repo.(*fakeSubmissionRepo).markErr = repoErr

	_, err := svc.Submit(context.Background(), validRequest(), validUpload())
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	require.Len(t, cleanup.jobs, 1)
	require.Empty(t, roster.grades)
}

func TestSanitizeFilePart(t *testing.T) {
	cases := map[string]string{
		"Ava Wilson":    "ava_wilson",
		"O'Brien-Smith": "o_brien_smith",
		"7th":           "7th",
		"":              "unnamed",
		"  ":            "__",
	}
	for in, want := range cases {
		require.Equal(t, want, sanitizeFilePart(in), "input %q", in)
	}
}
