package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockGroupRepository(t *testing.T) (*SQLGroupRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewSQLGroupRepository(mockDB), mock, mockDB
}

func TestSQLGroupRepository_List(t *testing.T) {
	repo, mock, mockDB := newMockGroupRepository(t)
	defer mockDB.Close()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "color", "created_at", "count"}).
		AddRow("g1", "t1", "Customers", "#ff0000", created, 3).
		AddRow("g2", "t1", "Partners", nil, created, 0)

	mock.ExpectQuery(`FROM contact_groups g\s+LEFT JOIN contact_group_members m`).
		WithArgs("t1").
		WillReturnRows(rows)

	groups, err := repo.List(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Customers", groups[0].Name)
	assert.Equal(t, 3, groups[0].ContactCount)
	assert.Equal(t, "", groups[1].Color)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGroupRepository_AddContact(t *testing.T) {
	t.Run("inserts new membership", func(t *testing.T) {
		repo, mock, mockDB := newMockGroupRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO contact_group_members`).
			WithArgs(sqlmock.AnyArg(), "g1", "t1", "c1", "t1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AddContact(context.Background(), "t1", "g1", "c1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing membership is not an error", func(t *testing.T) {
		repo, mock, mockDB := newMockGroupRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO contact_group_members`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contact_group_members`).
			WithArgs("g1", "c1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		require.NoError(t, repo.AddContact(context.Background(), "t1", "g1", "c1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown group or contact", func(t *testing.T) {
		repo, mock, mockDB := newMockGroupRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO contact_group_members`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contact_group_members`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		assert.ErrorIs(t, repo.AddContact(context.Background(), "t1", "g1", "c1"), ErrNotFound)
	})
}

func TestSQLGroupRepository_RemoveContact(t *testing.T) {
	repo, mock, mockDB := newMockGroupRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`DELETE FROM contact_group_members`).
		WithArgs("g1", "c1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.RemoveContact(context.Background(), "t1", "g1", "c1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
