package models

// ContactForm is the payload of contacts.save. Only name and email are
// required; an empty ID creates a new contact.
type ContactForm struct {
	ID              string   `json:"id,omitempty"`
	FullName        string   `json:"full_name" validate:"required,max=200" example:"Jane Doe"`
	FirstName       string   `json:"first_name,omitempty" validate:"max=100"`
	LastName        string   `json:"last_name,omitempty" validate:"max=100"`
	Email           string   `json:"email" validate:"required,email" example:"jane@example.com"`
	Phone           string   `json:"phone,omitempty" validate:"omitempty,max=40"`
	CountryCode     string   `json:"country_code,omitempty" validate:"omitempty,max=6"`
	CompanyName     string   `json:"company_name,omitempty" validate:"max=200"`
	JobTitle        string   `json:"job_title,omitempty" validate:"max=200"`
	AddressLine     string   `json:"address_line,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	PostalCode      string   `json:"postal_code,omitempty"`
	Country         string   `json:"country,omitempty"`
	Website         string   `json:"website,omitempty" validate:"omitempty,url"`
	Notes           string   `json:"notes,omitempty"`
	Source          string   `json:"source,omitempty" validate:"omitempty,oneof=conference referral website event social_media cold_outreach other"`
	Tags            []string `json:"tags,omitempty" validate:"dive,required,max=50"`
	LastContactedAt *string  `json:"last_contacted_at,omitempty"`
	ProfileImage    *string  `json:"profile_image,omitempty"`
}

// Contact converts the form into a contact for the given tenant.
func (f *ContactForm) Contact(tenantID string) *Contact {
	return &Contact{
		ID:              f.ID,
		TenantID:        tenantID,
		FullName:        f.FullName,
		FirstName:       f.FirstName,
		LastName:        f.LastName,
		Email:           f.Email,
		Phone:           f.Phone,
		CountryCode:     f.CountryCode,
		CompanyName:     f.CompanyName,
		JobTitle:        f.JobTitle,
		AddressLine:     f.AddressLine,
		City:            f.City,
		State:           f.State,
		PostalCode:      f.PostalCode,
		Country:         f.Country,
		Website:         f.Website,
		Notes:           f.Notes,
		Source:          Source(f.Source),
		Tags:            f.Tags,
		LastContactedAt: f.LastContactedAt,
		ProfileImage:    f.ProfileImage,
	}
}

type GroupMembershipRequest struct {
	ContactIDs []string `json:"contact_ids" example:"c1,c2" swagger:"required" description:"Contacts to add"`
}

// ViewRequest carries an ephemeral view state to evaluate server side.
type ViewRequest struct {
	Search         string   `json:"search"`
	GroupID        string   `json:"group_id,omitempty"`
	Period         string   `json:"period" example:"this_week"`
	Sources        []string `json:"sources"`
	SortField      string   `json:"sort_field" example:"name"`
	SortDirection  string   `json:"sort_direction" example:"asc"`
	NameOrder      string   `json:"name_order,omitempty" example:"first_last"`
	VisibleColumns []string `json:"visible_columns,omitempty"`
	ColumnOrder    []string `json:"column_order,omitempty"`
	Selected       []string `json:"selected,omitempty"`
}
