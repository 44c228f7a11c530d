package viewstate

import (
	"context"

	"crm-contacts/internal/models"
)

// Gateway is the remote data layer the view reads from and mutates through.
// Implementations are scoped to one tenant.
type Gateway interface {
	ListContacts(ctx context.Context, req models.ContactListRequest) ([]models.Contact, error)
	// SaveContact creates the contact when ID is empty, otherwise updates it.
	SaveContact(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	DeleteContact(ctx context.Context, contactID string) error

	ListGroups(ctx context.Context) ([]models.Group, error)
	GetGroupsForContact(ctx context.Context, contactID string) ([]models.Group, error)
	AddContactToGroup(ctx context.Context, contactID, groupID string) error
	RemoveContactFromGroup(ctx context.Context, contactID, groupID string) error

	GetFileURL(ctx context.Context, filePath string) (string, error)
}

// Invalidator marks cached query results stale.
type Invalidator interface {
	Invalidate(key string)
	InvalidatePrefix(prefix string)
}
