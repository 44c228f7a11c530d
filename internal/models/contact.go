package models

import (
	"context"
	"strings"
	"time"
)

// Source is the origin label of a contact.
type Source string

const (
	SourceConference   Source = "conference"
	SourceReferral     Source = "referral"
	SourceWebsite      Source = "website"
	SourceEvent        Source = "event"
	SourceSocialMedia  Source = "social_media"
	SourceColdOutreach Source = "cold_outreach"
	SourceOther        Source = "other"
)

// Sources lists every known source in display order.
var Sources = []Source{
	SourceConference,
	SourceReferral,
	SourceWebsite,
	SourceEvent,
	SourceSocialMedia,
	SourceColdOutreach,
	SourceOther,
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	for _, known := range Sources {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns a human readable form ("social_media" -> "Social Media").
func (s Source) Label() string {
	if s == "" {
		return ""
	}
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Enrichment statuses
const (
	EnrichmentNone     = "none"
	EnrichmentPending  = "pending"
	EnrichmentEnriched = "enriched"
	EnrichmentFailed   = "failed"
)

type Contact struct {
	ID               string   `json:"id"`
	TenantID         string   `json:"tenant_id"`
	FullName         string   `json:"full_name"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	CountryCode      string   `json:"country_code"`
	CompanyName      string   `json:"company_name"`
	JobTitle         string   `json:"job_title"`
	AddressLine      string   `json:"address_line"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	PostalCode       string   `json:"postal_code"`
	Country          string   `json:"country"`
	Website          string   `json:"website"`
	Notes            string   `json:"notes"`
	Source           Source   `json:"source"`
	EnrichmentStatus string   `json:"enrichment_status"`
	Tags             []string `json:"tags"`
	// LastContactedAt is kept as the raw timestamp string received from the
	// gateway; nil means never contacted.
	LastContactedAt *string   `json:"last_contacted_at"`
	ProfileImage    *string   `json:"profile_image"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DisplayName returns the full name, falling back to first + last.
func (c *Contact) DisplayName() string {
	if name := strings.TrimSpace(c.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// NameParts returns first and last name, splitting FullName on its last
// space when the split fields are empty.
func (c *Contact) NameParts() (first, last string) {
	if c.FirstName != "" || c.LastName != "" {
		return c.FirstName, c.LastName
	}
	name := strings.TrimSpace(c.FullName)
	if i := strings.LastIndex(name, " "); i > 0 {
		return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
	}
	return name, ""
}

// ContactListRequest filters contacts.list on the server side.
type ContactListRequest struct {
	Search  string `json:"search,omitempty"`
	GroupID string `json:"group_id,omitempty"`
}

type ContactRepository interface {
	List(ctx context.Context, tenantID string, req ContactListRequest) ([]*Contact, error)
	GetByID(ctx context.Context, tenantID, id string) (*Contact, error)
	Save(ctx context.Context, contact *Contact) error
	Update(ctx context.Context, contact *Contact) error
	Delete(ctx context.Context, tenantID, id string) error
}
