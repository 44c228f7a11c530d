// Package seed fills a tenant with fake contacts and groups for demos and
// load testing.
package seed

import (
	"context"
	"fmt"
	"time"

	"crm-contacts/internal/models"

	"github.com/brianvoe/gofakeit/v7"
)

// Target is the subset of a tenant gateway the seeder writes through.
type Target interface {
	SaveContact(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	CreateGroup(ctx context.Context, name, color string) (*models.Group, error)
	AddContactToGroup(ctx context.Context, contactID, groupID string) error
}

type Options struct {
	Contacts int
	Groups   int
	// Seed makes the generated data reproducible; 0 picks a random seed.
	Seed uint64
	Now  time.Time
}

type Result struct {
	Contacts []string
	Groups   []string
}

// Generator produces fake contacts. It is not safe for concurrent use.
type Generator struct {
	faker *gofakeit.Faker
	now   time.Time
}

func NewGenerator(seed uint64, now time.Time) *Generator {
	if now.IsZero() {
		now = time.Now()
	}
	return &Generator{faker: gofakeit.New(seed), now: now}
}

// Contact returns a contact with every optional field populated at random.
// Roughly one in five has never been contacted.
func (g *Generator) Contact() models.Contact {
	f := g.faker
	first, last := f.FirstName(), f.LastName()
	c := models.Contact{
		FullName:    first + " " + last,
		FirstName:   first,
		LastName:    last,
		Email:       f.Email(),
		Phone:       f.Phone(),
		CountryCode: fmt.Sprintf("%d", f.Number(1, 99)),
		CompanyName: f.Company(),
		JobTitle:    f.JobTitle(),
		AddressLine: f.Street(),
		City:        f.City(),
		State:       f.State(),
		PostalCode:  f.Zip(),
		Country:     f.Country(),
		Website:     f.URL(),
		Notes:       f.Sentence(8),
		Source:      models.Sources[f.Number(0, len(models.Sources)-1)],
		Tags:        []string{f.BuzzWord(), f.BuzzWord()},
	}
	if f.Number(1, 5) > 1 {
		days := f.Number(0, 120)
		ts := g.now.Add(-time.Duration(days)*24*time.Hour - time.Duration(f.Number(0, 86399))*time.Second).UTC().Format(time.RFC3339)
		c.LastContactedAt = &ts
	}
	return c
}

func (g *Generator) GroupName() string {
	return g.faker.BuzzWord() + " " + g.faker.JobLevel()
}

func (g *Generator) Color() string {
	return g.faker.HexColor()
}

// Run creates the groups first, then the contacts, adding each contact to
// one random group.
func Run(ctx context.Context, target Target, opts Options) (Result, error) {
	gen := NewGenerator(opts.Seed, opts.Now)
	var res Result

	for i := 0; i < opts.Groups; i++ {
		grp, err := target.CreateGroup(ctx, gen.GroupName(), gen.Color())
		if err != nil {
			return res, fmt.Errorf("create group %d: %w", i, err)
		}
		res.Groups = append(res.Groups, grp.ID)
	}

	for i := 0; i < opts.Contacts; i++ {
		c := gen.Contact()
		saved, err := target.SaveContact(ctx, &c)
		if err != nil {
			return res, fmt.Errorf("create contact %d: %w", i, err)
		}
		res.Contacts = append(res.Contacts, saved.ID)

		if len(res.Groups) > 0 {
			groupID := res.Groups[gen.faker.Number(0, len(res.Groups)-1)]
			if err := target.AddContactToGroup(ctx, saved.ID, groupID); err != nil {
				return res, fmt.Errorf("add contact %s to group: %w", saved.ID, err)
			}
		}
	}
	return res, nil
}
