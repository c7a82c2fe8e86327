package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/pledgecam/pledgecam-api/internal/models"
)

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "grade", "pledge_code", "favorite_celebrity", "video_submitted", "url", "created_at", "updated_at"})
}

func TestStudentRepositoryListNotSubmittedAllGrades(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	rows := studentRows().
		AddRow("s-1", "Ava Wilson", "7th", "P1", nil, false, nil, time.Now(), time.Now()).
		AddRow("s-2", "Liam Johnson", "8th", "P2", nil, false, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE video_submitted = false")).
		WillReturnRows(rows)

	students, err := repo.ListNotSubmitted(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "Ava Wilson", students[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListNotSubmittedFiltersGrade(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	rows := studentRows().
		AddRow("s-1", "Ava Wilson", "7th", "P1", nil, false, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("AND grade = $1")).
		WithArgs("7th").
		WillReturnRows(rows)

	students, err := repo.ListNotSubmitted(context.Background(), models.Grade("7th"))
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, models.Grade("7th"), students[0].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryMarkSubmitted(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET video_submitted = true")).
		WithArgs("s-1", "Taylor Swift", "ava_wilson_7th.webm", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkSubmitted(context.Background(), "s-1", "Taylor Swift", "ava_wilson_7th.webm")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryMarkSubmittedTwiceReturnsConflict(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET video_submitted = true")).
		WithArgs("s-1", "Taylor Swift", "ref.webm", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE id = $1")).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	err := repo.MarkSubmitted(context.Background(), "s-1", "Taylor Swift", "ref.webm")
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryMarkSubmittedUnknownStudent(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET video_submitted = true")).
		WithArgs("missing", "Anyone", "ref.webm", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	err := repo.MarkSubmitted(context.Background(), "missing", "Anyone", "ref.webm")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Name: "Ava Wilson", Grade: "7th", PledgeCode: "P1"}
	require.NoError(t, repo.Create(context.Background(), student))
	require.NotEmpty(t, student.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCountByGrade(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	rows := sqlmock.NewRows([]string{"grade", "submitted", "total"}).
		AddRow("7th", 3, 25).
		AddRow("8th", 5, 25)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY grade")).
		WillReturnRows(rows)

	counts, err := repo.CountByGrade(context.Background())
	require.NoError(t, err)
	require.Equal(t, [2]int{3, 25}, counts["7th"])
	require.Equal(t, [2]int{5, 25}, counts["8th"])
	require.NoError(t, mock.ExpectationsWereMet())
}
