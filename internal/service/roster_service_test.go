package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pledgecam/pledgecam-api/internal/models"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
)

type fakeRosterRepo struct {
	students []models.Student
	err      error
	calls    int
}

func (f *fakeRosterRepo) ListNotSubmitted(_ context.Context, grade models.Grade) ([]models.Student, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if grade == "" {
		return f.students, nil
	}
	var out []models.Student
	for _, s := range f.students {
		if s.Grade == grade {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeRosterCache struct {
	entries map[string][]models.Student
	deleted []string
}

func (f *fakeRosterCache) Get(_ context.Context, key string, dest interface{}) error {
	cached, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	ptr, ok := dest.(*[]models.Student)
	if !ok {
		return fmt.Errorf("unexpected dest type %T", dest)
	}
	*ptr = cached
	return nil
}

func (f *fakeRosterCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	students, ok := value.([]models.Student)
	if !ok {
		return fmt.Errorf("unexpected value type %T", value)
	}
	if f.entries == nil {
		f.entries = make(map[string][]models.Student)
	}
	f.entries[key] = students
	return nil
}

func (f *fakeRosterCache) DeleteByPattern(_ context.Context, pattern string) error {
	f.deleted = append(f.deleted, pattern)
	delete(f.entries, pattern)
	return nil
}

func rosterFixtureStudents() []models.Student {
	return []models.Student{
		{ID: "s-1", Name: "Ava Wilson", Grade: "7th", PledgeCode: "P1"},
		{ID: "s-2", Name: "Liam Johnson", Grade: "8th", PledgeCode: "P2"},
	}
}

func TestRosterServiceListNotSubmitted(t *testing.T) {
	repo := &fakeRosterRepo{students: rosterFixtureStudents()}
	cache := &fakeRosterCache{}
	svc := NewRosterService(repo, cache, nil, nil, RosterConfig{Grades: []string{"7th", "8th"}})

	students, err := svc.ListNotSubmitted(context.Background(), "7th")
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, "Ava Wilson", students[0].Name)
}

func TestRosterServiceRejectsUnknownGrade(t *testing.T) {
	repo := &fakeRosterRepo{students: rosterFixtureStudents()}
	svc := NewRosterService(repo, nil, nil, nil, RosterConfig{Grades: []string{"7th", "8th"}})

	_, err := svc.ListNotSubmitted(context.Background(), "9th")
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	require.Zero(t, repo.calls)
}

func TestRosterServiceCachesPerGrade(t *testing.T) {
	repo := &fakeRosterRepo{students: rosterFixtureStudents()}
	cache := &fakeRosterCache{}
	svc := NewRosterService(repo, cache, nil, nil, RosterConfig{Grades: []string{"7th", "8th"}})

	_, err := svc.ListNotSubmitted(context.Background(), "7th")
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	// Second read is served from the cache.
	students, err := svc.ListNotSubmitted(context.Background(), "7th")
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)
	require.Len(t, students, 1)
}

func TestRosterServiceInvalidateGradeDropsBothKeys(t *testing.T) {
	repo := &fakeRosterRepo{students: rosterFixtureStudents()}
	cache := &fakeRosterCache{}
	svc := NewRosterService(repo, cache, nil, nil, RosterConfig{Grades: []string{"7th", "8th"}})

	_, err := svc.ListNotSubmitted(context.Background(), "7th")
	require.NoError(t, err)
	_, err = svc.ListNotSubmitted(context.Background(), "")
	require.NoError(t, err)

	svc.InvalidateGrade(context.Background(), "7th")
	require.ElementsMatch(t, []string{"roster:grade:7th", "roster:grade:all"}, cache.deleted)

	// Next read goes back to the repository.
	before := repo.calls
	_, err = svc.ListNotSubmitted(context.Background(), "7th")
	require.NoError(t, err)
	require.Equal(t, before+1, repo.calls)
}

func TestRosterServiceRepositoryFailure(t *testing.T) {
	repo := &fakeRosterRepo{err: fmt.Errorf("connection refused")}
	svc := NewRosterService(repo, nil, nil, nil, RosterConfig{Grades: []string{"7th", "8th"}})

	_, err := svc.ListNotSubmitted(context.Background(), "7th")
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}
