package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-contacts/internal/models"
	"crm-contacts/internal/utils"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a row does not exist for the tenant.
var ErrNotFound = errors.New("not found")

const contactColumns = `
			id, tenant_id, full_name, first_name, last_name, email, phone,
			country_code, company_name, job_title, address_line, city, state,
			postal_code, country, website, notes, source, enrichment_status,
			tags, last_contacted_at, profile_image, created_at, updated_at`

type SQLContactRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLContactRepository(db *sql.DB) *SQLContactRepository {
	return &SQLContactRepository{db: db, now: time.Now}
}

var _ models.ContactRepository = (*SQLContactRepository)(nil)

func (r *SQLContactRepository) List(ctx context.Context, tenantID string, req models.ContactListRequest) ([]*models.Contact, error) {
	query := `SELECT` + contactColumns + `
		FROM contacts
		WHERE tenant_id = ?`
	args := []interface{}{tenantID}

	if req.GroupID != "" {
		query += `
		AND id IN (SELECT contact_id FROM contact_group_members WHERE group_id = ?)`
		args = append(args, req.GroupID)
	}

	if search := strings.ToLower(strings.TrimSpace(req.Search)); search != "" {
		like := "%" + search + "%"
		query += `
		AND (LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?)`
		args = append(args, like, like, like)
	}

	query += `
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*models.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}

	return contacts, nil
}

func (r *SQLContactRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Contact, error) {
	query := `SELECT` + contactColumns + `
		FROM contacts
		WHERE tenant_id = ? AND id = ?`

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting contact: %w", err)
	}
	return contact, nil
}

func (r *SQLContactRepository) Save(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	if contact.EnrichmentStatus == "" {
		contact.EnrichmentStatus = models.EnrichmentNone
	}
	now := r.now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	tags, err := encodeTags(contact.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO contacts (` + contactColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		contact.ID,
		contact.TenantID,
		contact.FullName,
		utils.NullString(contact.FirstName),
		utils.NullString(contact.LastName),
		contact.Email,
		utils.NullString(contact.Phone),
		utils.NullString(contact.CountryCode),
		utils.NullString(contact.CompanyName),
		utils.NullString(contact.JobTitle),
		utils.NullString(contact.AddressLine),
		utils.NullString(contact.City),
		utils.NullString(contact.State),
		utils.NullString(contact.PostalCode),
		utils.NullString(contact.Country),
		utils.NullString(contact.Website),
		utils.NullString(contact.Notes),
		utils.NullString(string(contact.Source)),
		contact.EnrichmentStatus,
		tags,
		utils.NullTimeFromString(contact.LastContactedAt),
		utils.NullStringPtr(contact.ProfileImage),
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving contact: %w", err)
	}

	return nil
}

// Update overwrites a contact. An empty enrichment status keeps the stored one.
func (r *SQLContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	contact.UpdatedAt = r.now().UTC()

	tags, err := encodeTags(contact.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE contacts
		SET full_name = ?,
			first_name = ?,
			last_name = ?,
			email = ?,
			phone = ?,
			country_code = ?,
			company_name = ?,
			job_title = ?,
			address_line = ?,
			city = ?,
			state = ?,
			postal_code = ?,
			country = ?,
			website = ?,
			notes = ?,
			source = ?,
			enrichment_status = COALESCE(NULLIF(?, ''), enrichment_status),
			tags = ?,
			last_contacted_at = ?,
			profile_image = ?,
			updated_at = ?
		WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		contact.FullName,
		utils.NullString(contact.FirstName),
		utils.NullString(contact.LastName),
		contact.Email,
		utils.NullString(contact.Phone),
		utils.NullString(contact.CountryCode),
		utils.NullString(contact.CompanyName),
		utils.NullString(contact.JobTitle),
		utils.NullString(contact.AddressLine),
		utils.NullString(contact.City),
		utils.NullString(contact.State),
		utils.NullString(contact.PostalCode),
		utils.NullString(contact.Country),
		utils.NullString(contact.Website),
		utils.NullString(contact.Notes),
		utils.NullString(string(contact.Source)),
		contact.EnrichmentStatus,
		tags,
		utils.NullTimeFromString(contact.LastContactedAt),
		utils.NullStringPtr(contact.ProfileImage),
		contact.UpdatedAt,
		contact.TenantID,
		contact.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating contact: %w", err)
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

func (r *SQLContactRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("error deleting contact: %w", err)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	contact := &models.Contact{}
	var (
		firstName, lastName, phone, countryCode, companyName, jobTitle sql.NullString
		addressLine, city, state, postalCode, country, website, notes  sql.NullString
		source, tags, profileImage                                     sql.NullString
		lastContactedAt                                                sql.NullTime
	)

	err := row.Scan(
		&contact.ID,
		&contact.TenantID,
		&contact.FullName,
		&firstName,
		&lastName,
		&contact.Email,
		&phone,
		&countryCode,
		&companyName,
		&jobTitle,
		&addressLine,
		&city,
		&state,
		&postalCode,
		&country,
		&website,
		&notes,
		&source,
		&contact.EnrichmentStatus,
		&tags,
		&lastContactedAt,
		&profileImage,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	contact.FirstName = firstName.String
	contact.LastName = lastName.String
	contact.Phone = phone.String
	contact.CountryCode = countryCode.String
	contact.CompanyName = companyName.String
	contact.JobTitle = jobTitle.String
	contact.AddressLine = addressLine.String
	contact.City = city.String
	contact.State = state.String
	contact.PostalCode = postalCode.String
	contact.Country = country.String
	contact.Website = website.String
	contact.Notes = notes.String
	contact.Source = models.Source(source.String)
	contact.LastContactedAt = utils.TimeString(lastContactedAt)
	contact.ProfileImage = utils.StringPtr(profileImage)
	contact.Tags = decodeTags(tags)

	return contact, nil
}

func encodeTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("error encoding tags: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// decodeTags tolerates legacy comma separated values.
func decodeTags(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(ns.String), &tags); err == nil {
		return tags
	}
	for _, t := range strings.Split(ns.String, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
