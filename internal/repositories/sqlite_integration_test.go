package repositories

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"crm-contacts/config"
	"crm-contacts/internal/migrations"
	"crm-contacts/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openMigratedSQLite(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "crm.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	m, err := migrations.New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := config.ConnectDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRepositories_SQLiteRoundTrip(t *testing.T) {
	db := openMigratedSQLite(t)
	ctx := context.Background()
	contacts := NewSQLContactRepository(db)
	groups := NewSQLGroupRepository(db)

	jane := &models.Contact{TenantID: "t1", FullName: "Jane Doe", Email: "jane@x.com", Source: models.SourceReferral, Tags: []string{"vip"}}
	bob := &models.Contact{TenantID: "t1", FullName: "Bob Lee", Email: "bob@y.com"}
	other := &models.Contact{TenantID: "t2", FullName: "Jane Other", Email: "jane@other.com"}
	for _, c := range []*models.Contact{jane, bob, other} {
		require.NoError(t, contacts.Save(ctx, c))
	}

	listed, err := contacts.List(ctx, "t1", models.ContactListRequest{Search: "jane"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, jane.ID, listed[0].ID)
	assert.Equal(t, []string{"vip"}, listed[0].Tags)

	group := &models.Group{TenantID: "t1", Name: "Customers", Color: "#00ff00"}
	require.NoError(t, groups.Save(ctx, group))

	require.NoError(t, groups.AddContact(ctx, "t1", group.ID, jane.ID))
	require.NoError(t, groups.AddContact(ctx, "t1", group.ID, jane.ID))
	assert.ErrorIs(t, groups.AddContact(ctx, "t1", group.ID, other.ID), ErrNotFound)

	all, err := groups.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].ContactCount)

	forJane, err := groups.ListForContact(ctx, "t1", jane.ID)
	require.NoError(t, err)
	require.Len(t, forJane, 1)
	assert.Equal(t, "Customers", forJane[0].Name)

	members, err := contacts.List(ctx, "t1", models.ContactListRequest{GroupID: group.ID})
	require.NoError(t, err)
	require.Len(t, members, 1)

	require.NoError(t, groups.RemoveContact(ctx, "t1", group.ID, jane.ID))
	assert.ErrorIs(t, groups.RemoveContact(ctx, "t1", group.ID, jane.ID), ErrNotFound)

	bob.JobTitle = "CTO"
	require.NoError(t, contacts.Update(ctx, bob))
	got, err := contacts.GetByID(ctx, "t1", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "CTO", got.JobTitle)

	require.NoError(t, contacts.Delete(ctx, "t1", bob.ID))
	_, err = contacts.GetByID(ctx, "t1", bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
