package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newPledgeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPledgeRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newPledgeRepoMock(t)
	defer cleanup()

	repo := NewPledgeRepository(db)
	rows := sqlmock.NewRows([]string{"id", "pledge_code", "pledge_text"}).
		AddRow("p-1", "P1", "I pledge to be a responsible digital citizen and treat others with respect online.")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE pledge_code = $1")).
		WithArgs("P1").
		WillReturnRows(rows)

	pledge, err := repo.FindByCode(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, "P1", pledge.PledgeCode)
	require.Contains(t, pledge.PledgeText, "responsible digital citizen")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPledgeRepositoryFindByCodeUnknown(t *testing.T) {
	db, mock, cleanup := newPledgeRepoMock(t)
	defer cleanup()

	repo := NewPledgeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE pledge_code = $1")).
		WithArgs("P9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "P9")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPledgeRepositoryList(t *testing.T) {
	db, mock, cleanup := newPledgeRepoMock(t)
	defer cleanup()

	repo := NewPledgeRepository(db)
	rows := sqlmock.NewRows([]string{"id", "pledge_code", "pledge_text"}).
		AddRow("p-1", "P1", "first").
		AddRow("p-2", "P2", "second")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY pledge_code ASC")).
		WillReturnRows(rows)

	pledges, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, pledges, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
