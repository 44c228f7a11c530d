package seed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"crm-contacts/internal/models"
	"crm-contacts/internal/viewstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTarget struct {
	contacts    []models.Contact
	groups      []models.Group
	memberships map[string]string
	failSave    bool
}

func (m *memoryTarget) SaveContact(_ context.Context, c *models.Contact) (*models.Contact, error) {
	if m.failSave {
		return nil, errors.New("db down")
	}
	saved := *c
	saved.ID = fmt.Sprintf("c%d", len(m.contacts)+1)
	m.contacts = append(m.contacts, saved)
	return &saved, nil
}

func (m *memoryTarget) CreateGroup(_ context.Context, name, color string) (*models.Group, error) {
	g := models.Group{ID: fmt.Sprintf("g%d", len(m.groups)+1), Name: name, Color: color}
	m.groups = append(m.groups, g)
	return &g, nil
}

func (m *memoryTarget) AddContactToGroup(_ context.Context, contactID, groupID string) error {
	if m.memberships == nil {
		m.memberships = make(map[string]string)
	}
	m.memberships[contactID] = groupID
	return nil
}

func TestGenerator_ContactsAreValid(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)
	gen := NewGenerator(42, now)

	for i := 0; i < 50; i++ {
		c := gen.Contact()
		assert.NotEmpty(t, c.FullName)
		assert.NotEmpty(t, c.Email)
		assert.True(t, c.Source.Valid(), c.Source)
		if c.LastContactedAt != nil {
			ts, err := time.Parse(time.RFC3339, *c.LastContactedAt)
			require.NoError(t, err)
			assert.False(t, ts.After(now))
		}
	}
}

func TestGenerator_IsReproducible(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)
	a, b := NewGenerator(7, now), NewGenerator(7, now)
	assert.Equal(t, a.Contact(), b.Contact())
	assert.Equal(t, a.GroupName(), b.GroupName())
}

func TestRun(t *testing.T) {
	target := &memoryTarget{}
	res, err := Run(context.Background(), target, Options{Contacts: 20, Groups: 3, Seed: 1})
	require.NoError(t, err)

	assert.Len(t, res.Groups, 3)
	assert.Len(t, res.Contacts, 20)
	assert.Len(t, target.memberships, 20)

	engine := viewstate.NewEngine()
	all := engine.Apply(target.contacts, viewstate.Criteria{Period: viewstate.PeriodAll, Sort: viewstate.DefaultSort()})
	assert.Len(t, all, 20)
}

func TestRun_StopsOnError(t *testing.T) {
	target := &memoryTarget{failSave: true}
	res, err := Run(context.Background(), target, Options{Contacts: 5, Groups: 1})
	require.Error(t, err)
	assert.Len(t, res.Groups, 1)
	assert.Empty(t, res.Contacts)
}
