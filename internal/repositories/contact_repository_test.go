package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"crm-contacts/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactRowColumns = []string{
	"id", "tenant_id", "full_name", "first_name", "last_name", "email", "phone",
	"country_code", "company_name", "job_title", "address_line", "city", "state",
	"postal_code", "country", "website", "notes", "source", "enrichment_status",
	"tags", "last_contacted_at", "profile_image", "created_at", "updated_at",
}

func newMockContactRepository(t *testing.T) (*SQLContactRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewSQLContactRepository(mockDB)
	repo.now = func() time.Time { return time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC) }
	return repo, mock, mockDB
}

func TestSQLContactRepository_List(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	contacted := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("lists tenant contacts", func(t *testing.T) {
		repo, mock, mockDB := newMockContactRepository(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows(contactRowColumns).
			AddRow("c1", "t1", "Jane Doe", nil, nil, "jane@x.com", "555", nil, "Acme", nil, nil, nil, nil,
				nil, nil, nil, "met at expo", "conference", "none", `["vip","lead"]`, contacted, nil, created, created).
			AddRow("c2", "t1", "Bob Lee", "Bob", "Lee", "bob@y.com", nil, nil, nil, nil, nil, nil, nil,
				nil, nil, nil, nil, nil, "pending", "a, b", nil, "avatars/bob.png", created, created)

		mock.ExpectQuery(`SELECT .+ FROM contacts\s+WHERE tenant_id = \?\s+ORDER BY created_at DESC`).
			WithArgs("t1").
			WillReturnRows(rows)

		contacts, err := repo.List(context.Background(), "t1", models.ContactListRequest{})
		require.NoError(t, err)
		require.Len(t, contacts, 2)

		assert.Equal(t, "Jane Doe", contacts[0].FullName)
		assert.Equal(t, models.SourceConference, contacts[0].Source)
		assert.Equal(t, []string{"vip", "lead"}, contacts[0].Tags)
		require.NotNil(t, contacts[0].LastContactedAt)
		assert.Equal(t, "2025-06-01T00:00:00Z", *contacts[0].LastContactedAt)
		assert.Nil(t, contacts[0].ProfileImage)

		assert.Equal(t, []string{"a", "b"}, contacts[1].Tags)
		assert.Nil(t, contacts[1].LastContactedAt)
		require.NotNil(t, contacts[1].ProfileImage)
		assert.Equal(t, "avatars/bob.png", *contacts[1].ProfileImage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies group and search filters", func(t *testing.T) {
		repo, mock, mockDB := newMockContactRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`AND id IN \(SELECT contact_id FROM contact_group_members WHERE group_id = \?\)\s+AND \(LOWER\(full_name\) LIKE \?`).
			WithArgs("t1", "g1", "%jane%", "%jane%", "%jane%").
			WillReturnRows(sqlmock.NewRows(contactRowColumns))

		contacts, err := repo.List(context.Background(), "t1", models.ContactListRequest{Search: "  JANE ", GroupID: "g1"})
		require.NoError(t, err)
		assert.Empty(t, contacts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps query errors", func(t *testing.T) {
		repo, mock, mockDB := newMockContactRepository(t)
		defer mockDB.Close()

		boom := errors.New("connection reset")
		mock.ExpectQuery(`SELECT .+ FROM contacts`).WillReturnError(boom)

		_, err := repo.List(context.Background(), "t1", models.ContactListRequest{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestSQLContactRepository_GetByID(t *testing.T) {
	t.Run("returns ErrNotFound for missing row", func(t *testing.T) {
		repo, mock, mockDB := newMockContactRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`WHERE tenant_id = \? AND id = \?`).
			WithArgs("t1", "missing").
			WillReturnRows(sqlmock.NewRows(contactRowColumns))

		_, err := repo.GetByID(context.Background(), "t1", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSQLContactRepository_Save(t *testing.T) {
	repo, mock, mockDB := newMockContactRepository(t)
	defer mockDB.Close()

	lastContacted := "2025-06-01"
	contact := &models.Contact{
		TenantID:        "t1",
		FullName:        "Jane Doe",
		Email:           "jane@x.com",
		Tags:            []string{"vip"},
		LastContactedAt: &lastContacted,
	}

	mock.ExpectExec(`INSERT INTO contacts`).
		WithArgs(sqlmock.AnyArg(), "t1", "Jane Doe", nil, nil, "jane@x.com", nil, nil, nil, nil, nil, nil, nil,
			nil, nil, nil, nil, nil, models.EnrichmentNone, `["vip"]`,
			time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), contact))
	assert.NotEmpty(t, contact.ID)
	assert.Equal(t, models.EnrichmentNone, contact.EnrichmentStatus)
	assert.Equal(t, time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC), contact.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLContactRepository_Update(t *testing.T) {
	t.Run("returns ErrNotFound when no row matches", func(t *testing.T) {
		repo, mock, mockDB := newMockContactRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE contacts`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &models.Contact{ID: "c1", TenantID: "t1", FullName: "x", Email: "x@x.com"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("updates matching row", func(t *testing.T) {
		repo, mock, mockDB := newMockContactRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE contacts\s+SET full_name = \?`).WillReturnResult(sqlmock.NewResult(0, 1))

		contact := &models.Contact{ID: "c1", TenantID: "t1", FullName: "x", Email: "x@x.com", EnrichmentStatus: models.EnrichmentPending}
		require.NoError(t, repo.Update(context.Background(), contact))
		assert.Equal(t, models.EnrichmentPending, contact.EnrichmentStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeps stored enrichment status when none is given", func(t *testing.T) {
		repo, mock, mockDB := newMockContactRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`enrichment_status = COALESCE\(NULLIF\(\?, ''\), enrichment_status\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		contact := &models.Contact{ID: "c1", TenantID: "t1", FullName: "x", Email: "x@x.com"}
		require.NoError(t, repo.Update(context.Background(), contact))
		assert.Empty(t, contact.EnrichmentStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLContactRepository_Delete(t *testing.T) {
	repo, mock, mockDB := newMockContactRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`DELETE FROM contacts WHERE tenant_id = \? AND id = \?`).
		WithArgs("t1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM contacts`).
		WithArgs("t1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "t1", "c1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "t1", "c1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
