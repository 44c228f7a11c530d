package viewstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"crm-contacts/internal/models"
)

var errGateway = errors.New("gateway unavailable")

// fakeGateway is an in-memory Gateway that records calls.
type fakeGateway struct {
	mu       sync.Mutex
	contacts []models.Contact
	groups   []models.Group
	members  map[string]map[string]bool // groupID -> contactID
	fileURLs map[string]string

	failAdd    map[string]bool
	failSave   map[string]bool
	listErr    error
	deleteErr  error
	removeErr  error
	listCalls  int
	urlCalls   int
	addCalls   []string
	saveCalls  []models.Contact
	deleteIDs  []string
	listGate   chan struct{}
	nextSaveID int
}

func newFakeGateway(contacts ...models.Contact) *fakeGateway {
	return &fakeGateway{
		contacts: contacts,
		members:  make(map[string]map[string]bool),
		fileURLs: make(map[string]string),
		failAdd:  make(map[string]bool),
		failSave: make(map[string]bool),
	}
}

func (g *fakeGateway) ListContacts(ctx context.Context, req models.ContactListRequest) ([]models.Contact, error) {
	g.mu.Lock()
	gate := g.listGate
	g.listCalls++
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]models.Contact, 0, len(g.contacts))
	for _, c := range g.contacts {
		if req.GroupID != "" && !g.members[req.GroupID][c.ID] {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (g *fakeGateway) SaveContact(_ context.Context, c *models.Contact) (*models.Contact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveCalls = append(g.saveCalls, *c)
	if g.failSave[c.ID] {
		return nil, errGateway
	}
	saved := *c
	if saved.ID == "" {
		g.nextSaveID++
		saved.ID = fmt.Sprintf("new-%d", g.nextSaveID)
		g.contacts = append(g.contacts, saved)
		return &saved, nil
	}
	for i := range g.contacts {
		if g.contacts[i].ID == saved.ID {
			g.contacts[i] = saved
		}
	}
	return &saved, nil
}

func (g *fakeGateway) DeleteContact(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteIDs = append(g.deleteIDs, id)
	if g.deleteErr != nil {
		return g.deleteErr
	}
	kept := g.contacts[:0:0]
	for _, c := range g.contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	g.contacts = kept
	return nil
}

func (g *fakeGateway) ListGroups(context.Context) ([]models.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.Group, len(g.groups))
	for i, grp := range g.groups {
		grp.ContactCount = len(g.members[grp.ID])
		out[i] = grp
	}
	return out, nil
}

func (g *fakeGateway) GetGroupsForContact(_ context.Context, contactID string) ([]models.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.Group
	for _, grp := range g.groups {
		if g.members[grp.ID][contactID] {
			out = append(out, grp)
		}
	}
	return out, nil
}

func (g *fakeGateway) AddContactToGroup(_ context.Context, contactID, groupID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addCalls = append(g.addCalls, contactID)
	if g.failAdd[contactID] {
		return errGateway
	}
	if g.members[groupID] == nil {
		g.members[groupID] = make(map[string]bool)
	}
	g.members[groupID][contactID] = true
	return nil
}

func (g *fakeGateway) RemoveContactFromGroup(_ context.Context, contactID, groupID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.removeErr != nil {
		return g.removeErr
	}
	delete(g.members[groupID], contactID)
	return nil
}

func (g *fakeGateway) GetFileURL(_ context.Context, filePath string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.urlCalls++
	if u, ok := g.fileURLs[filePath]; ok {
		return u, nil
	}
	return "https://signed.example.com/" + filePath + "?sig=1", nil
}

func (g *fakeGateway) isMember(contactID, groupID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.members[groupID][contactID]
}

// recordingInvalidator captures invalidated keys.
type recordingInvalidator struct {
	mu       sync.Mutex
	keys     []string
	prefixes []string
}

func (r *recordingInvalidator) Invalidate(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

func (r *recordingInvalidator) InvalidatePrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append(r.prefixes, prefix)
}

func strPtr(s string) *string { return &s }

func (g *fakeGateway) gate() chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listGate = make(chan struct{})
	return g.listGate
}

func (g *fakeGateway) listCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls
}
