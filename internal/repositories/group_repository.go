package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"crm-contacts/internal/models"
	"crm-contacts/internal/utils"

	"github.com/google/uuid"
)

type SQLGroupRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLGroupRepository(db *sql.DB) *SQLGroupRepository {
	return &SQLGroupRepository{db: db, now: time.Now}
}

var _ models.GroupRepository = (*SQLGroupRepository)(nil)

func (r *SQLGroupRepository) List(ctx context.Context, tenantID string) ([]*models.Group, error) {
	query := `
		SELECT g.id, g.tenant_id, g.name, g.color, g.created_at, COUNT(m.contact_id)
		FROM contact_groups g
		LEFT JOIN contact_group_members m ON m.group_id = g.id
		WHERE g.tenant_id = ?
		GROUP BY g.id, g.tenant_id, g.name, g.color, g.created_at
		ORDER BY g.name`

	return r.fetchGroups(ctx, query, tenantID)
}

func (r *SQLGroupRepository) ListForContact(ctx context.Context, tenantID, contactID string) ([]*models.Group, error) {
	query := `
		SELECT g.id, g.tenant_id, g.name, g.color, g.created_at,
			(SELECT COUNT(*) FROM contact_group_members c WHERE c.group_id = g.id)
		FROM contact_groups g
		INNER JOIN contact_group_members m ON m.group_id = g.id
		WHERE g.tenant_id = ? AND m.contact_id = ?
		ORDER BY g.name`

	return r.fetchGroups(ctx, query, tenantID, contactID)
}

func (r *SQLGroupRepository) fetchGroups(ctx context.Context, query string, args ...interface{}) ([]*models.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		group := &models.Group{}
		var color sql.NullString
		if err := rows.Scan(&group.ID, &group.TenantID, &group.Name, &color, &group.CreatedAt, &group.ContactCount); err != nil {
			return nil, fmt.Errorf("error scanning group: %w", err)
		}
		group.Color = color.String
		groups = append(groups, group)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}

func (r *SQLGroupRepository) Save(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	group.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_groups (id, tenant_id, name, color, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		group.ID, group.TenantID, group.Name, utils.NullString(group.Color), group.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving group: %w", err)
	}
	return nil
}

// AddContact is idempotent: adding an existing member succeeds. Both the
// group and the contact must belong to tenantID.
func (r *SQLGroupRepository) AddContact(ctx context.Context, tenantID, groupID, contactID string) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_group_members (group_id, contact_id, created_at)
		SELECT g.id, c.id, ?
		FROM contact_groups g, contacts c
		WHERE g.id = ? AND g.tenant_id = ? AND c.id = ? AND c.tenant_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM contact_group_members x
			WHERE x.group_id = g.id AND x.contact_id = c.id
		)`,
		r.now().UTC(), groupID, tenantID, contactID, tenantID)
	if err != nil {
		return fmt.Errorf("error adding contact to group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var count int
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM contact_group_members
		WHERE group_id = ? AND contact_id = ?`,
		groupID, contactID).Scan(&count)
	if err != nil {
		return fmt.Errorf("error checking membership: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLGroupRepository) RemoveContact(ctx context.Context, tenantID, groupID, contactID string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM contact_group_members
		WHERE group_id = ? AND contact_id = ?
		AND group_id IN (SELECT id FROM contact_groups WHERE tenant_id = ?)`,
		groupID, contactID, tenantID)
	if err != nil {
		return fmt.Errorf("error removing contact from group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
