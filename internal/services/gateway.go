package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-contacts/internal/models"
	"crm-contacts/internal/repositories"
	"crm-contacts/internal/utils"
	"crm-contacts/internal/viewstate"
)

var ErrForeignFile = errors.New("file does not belong to tenant")

type FileURLSigner interface {
	GetFileURL(ctx context.Context, filePath string) (string, error)
}

// Notifier pushes cache invalidations to connected clients.
type Notifier interface {
	SendInvalidateEvent(tenantID string, keys, prefixes []string)
}

// LocalGateway serves the gateway operations of one tenant from the SQL
// repositories and object storage.
type LocalGateway struct {
	tenantID string
	contacts models.ContactRepository
	groups   models.GroupRepository
	storage  FileURLSigner
	notifier Notifier
	metrics  *Metrics
}

var _ viewstate.Gateway = (*LocalGateway)(nil)

// NewLocalGateway builds a tenant gateway. storage, notifier and metrics
// may be nil.
func NewLocalGateway(tenantID string, contacts models.ContactRepository, groups models.GroupRepository, storage FileURLSigner, notifier Notifier, metrics *Metrics) *LocalGateway {
	return &LocalGateway{
		tenantID: tenantID,
		contacts: contacts,
		groups:   groups,
		storage:  storage,
		notifier: notifier,
		metrics:  metrics,
	}
}

func (g *LocalGateway) TenantID() string {
	return g.tenantID
}

func (g *LocalGateway) notify(keys []string, prefixes ...string) {
	if g.notifier != nil {
		g.notifier.SendInvalidateEvent(g.tenantID, keys, prefixes)
	}
}

func (g *LocalGateway) ListContacts(ctx context.Context, req models.ContactListRequest) (contacts []models.Contact, err error) {
	defer func(start time.Time) { g.metrics.Observe("contacts.list", start, err) }(time.Now())

	found, err := g.contacts.List(ctx, g.tenantID, req)
	if err != nil {
		return nil, err
	}
	contacts = make([]models.Contact, 0, len(found))
	for _, c := range found {
		contacts = append(contacts, *c)
	}
	return contacts, nil
}

// SaveContact inserts when the contact has no ID and updates otherwise.
func (g *LocalGateway) SaveContact(ctx context.Context, contact *models.Contact) (saved *models.Contact, err error) {
	defer func(start time.Time) { g.metrics.Observe("contacts.save", start, err) }(time.Now())

	c := *contact
	c.TenantID = g.tenantID
	if c.ID == "" {
		if err := g.contacts.Save(ctx, &c); err != nil {
			return nil, err
		}
		utils.LogInfo("Contact %s created for tenant %s", c.ID, g.tenantID)
	} else {
		if err := g.contacts.Update(ctx, &c); err != nil {
			return nil, err
		}
		utils.LogDebug("Contact %s updated for tenant %s", c.ID, g.tenantID)
	}

	saved, err = g.contacts.GetByID(ctx, g.tenantID, c.ID)
	if err != nil {
		return nil, err
	}
	g.notify(nil, viewstate.ContactsListPrefix)
	return saved, nil
}

func (g *LocalGateway) DeleteContact(ctx context.Context, contactID string) (err error) {
	defer func(start time.Time) { g.metrics.Observe("contacts.delete", start, err) }(time.Now())

	if err = g.contacts.Delete(ctx, g.tenantID, contactID); err != nil {
		return err
	}
	utils.LogInfo("Contact %s deleted for tenant %s", contactID, g.tenantID)
	g.notify([]string{viewstate.GroupsListKey, viewstate.GroupsForContactKey(contactID)}, viewstate.ContactsListPrefix)
	return nil
}

func (g *LocalGateway) ListGroups(ctx context.Context) (groups []models.Group, err error) {
	defer func(start time.Time) { g.metrics.Observe("groups.list", start, err) }(time.Now())

	found, err := g.groups.List(ctx, g.tenantID)
	if err != nil {
		return nil, err
	}
	return derefGroups(found), nil
}

func (g *LocalGateway) GetGroupsForContact(ctx context.Context, contactID string) (groups []models.Group, err error) {
	defer func(start time.Time) { g.metrics.Observe("groups.getGroupsForContact", start, err) }(time.Now())

	found, err := g.groups.ListForContact(ctx, g.tenantID, contactID)
	if err != nil {
		return nil, err
	}
	return derefGroups(found), nil
}

// CreateGroup adds a named group for the tenant.
func (g *LocalGateway) CreateGroup(ctx context.Context, name, color string) (group *models.Group, err error) {
	defer func(start time.Time) { g.metrics.Observe("groups.create", start, err) }(time.Now())

	group = &models.Group{TenantID: g.tenantID, Name: strings.TrimSpace(name), Color: color}
	if group.Name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	if err = g.groups.Save(ctx, group); err != nil {
		return nil, err
	}
	g.notify([]string{viewstate.GroupsListKey})
	return group, nil
}

func (g *LocalGateway) AddContactToGroup(ctx context.Context, contactID, groupID string) (err error) {
	defer func(start time.Time) { g.metrics.Observe("groups.addContact", start, err) }(time.Now())

	if err = g.groups.AddContact(ctx, g.tenantID, groupID, contactID); err != nil {
		return err
	}
	g.notify([]string{viewstate.GroupsListKey, viewstate.GroupsForContactKey(contactID)}, viewstate.ContactsListPrefix)
	return nil
}

func (g *LocalGateway) RemoveContactFromGroup(ctx context.Context, contactID, groupID string) (err error) {
	defer func(start time.Time) { g.metrics.Observe("groups.removeContact", start, err) }(time.Now())

	if err = g.groups.RemoveContact(ctx, g.tenantID, groupID, contactID); err != nil {
		return err
	}
	g.notify([]string{viewstate.GroupsListKey, viewstate.GroupsForContactKey(contactID)}, viewstate.ContactsListPrefix)
	return nil
}

// GetFileURL signs a storage path of this tenant. Direct URLs pass through.
func (g *LocalGateway) GetFileURL(ctx context.Context, filePath string) (url string, err error) {
	defer func(start time.Time) { g.metrics.Observe("storage.getFileUrl", start, err) }(time.Now())

	if utils.IsURL(filePath) {
		return filePath, nil
	}
	if g.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	if !strings.HasPrefix(strings.TrimPrefix(filePath, "/"), TenantPrefix(g.tenantID)) {
		return "", ErrForeignFile
	}
	return g.storage.GetFileURL(ctx, filePath)
}

func derefGroups(found []*models.Group) []models.Group {
	out := make([]models.Group, 0, len(found))
	for _, grp := range found {
		out = append(out, *grp)
	}
	return out
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}
