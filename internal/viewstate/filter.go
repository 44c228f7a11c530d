package viewstate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"crm-contacts/internal/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortField string

const (
	SortName          SortField = "name"
	SortEmail         SortField = "email"
	SortPhone         SortField = "phone"
	SortCompany       SortField = "company"
	SortJobTitle      SortField = "job_title"
	SortSource        SortField = "source"
	SortLastContacted SortField = "last_contacted"
	SortCreated       SortField = "created_at"
)

func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SortName, nil
	case SortName, SortEmail, SortPhone, SortCompany, SortJobTitle, SortSource, SortLastContacted, SortCreated:
		return f, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", s)
	}
}

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Ascending, nil
	case Ascending, Descending:
		return d, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}

// NameOrder picks how the name column sorts, independent of other fields.
type NameOrder string

const (
	FirstNameFirst NameOrder = "first_last"
	LastNameFirst  NameOrder = "last_first"
)

func ParseNameOrder(s string) (NameOrder, error) {
	switch o := NameOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return FirstNameFirst, nil
	case FirstNameFirst, LastNameFirst:
		return o, nil
	default:
		return "", fmt.Errorf("unknown name order %q", s)
	}
}

type SortSpec struct {
	Field     SortField
	Direction Direction
	NameOrder NameOrder
}

// DefaultSort orders by name, ascending, first name first.
func DefaultSort() SortSpec {
	return SortSpec{Field: SortName, Direction: Ascending, NameOrder: FirstNameFirst}
}

// Toggle applies a header click: the active field flips direction, any
// other field becomes active in ascending order.
func (s SortSpec) Toggle(field SortField) SortSpec {
	if s.Field == field {
		if s.Direction == Descending {
			s.Direction = Ascending
		} else {
			s.Direction = Descending
		}
		return s
	}
	s.Field = field
	s.Direction = Ascending
	return s
}

// Criteria is the filter and sort part of a view state.
type Criteria struct {
	Search  string
	Period  DatePeriod
	Sources []models.Source
	Sort    SortSpec
}

// Engine reduces a contact collection to the visible, ordered rows.
type Engine struct {
	now       func() time.Time
	loc       *time.Location
	lang      language.Tag
	lastMonth LastMonthMode
}

type EngineOption func(*Engine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) { e.loc = loc }
}

func WithLanguage(tag language.Tag) EngineOption {
	return func(e *Engine) { e.lang = tag }
}

func WithLastMonthMode(mode LastMonthMode) EngineOption {
	return func(e *Engine) { e.lastMonth = mode }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		now:  time.Now,
		loc:  time.Local,
		lang: language.English,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply filters by period, source and search text, then sorts. The result
// is a new slice; contacts is not modified.
func (e *Engine) Apply(contacts []models.Contact, c Criteria) []models.Contact {
	now := e.now().In(e.loc)

	out := make([]models.Contact, 0, len(contacts))
	for _, contact := range contacts {
		if e.matchesPeriod(&contact, c.Period, now) {
			out = append(out, contact)
		}
	}
	out = filterSources(out, c.Sources)
	out = filterSearch(out, c.Search)
	e.sort(out, c.Sort)
	return out
}

func (e *Engine) matchesPeriod(c *models.Contact, p DatePeriod, now time.Time) bool {
	t, ok := parseTimestamp(c.LastContactedAt, e.loc)
	return matchesPeriod(p, t, ok, now, e.lastMonth)
}

func filterSources(contacts []models.Contact, sources []models.Source) []models.Contact {
	if len(sources) == 0 {
		return contacts
	}
	selected := make(map[models.Source]struct{}, len(sources))
	for _, s := range sources {
		selected[s] = struct{}{}
	}

	out := contacts[:0:0]
	for _, c := range contacts {
		if c.Source == "" {
			continue
		}
		if _, ok := selected[c.Source]; ok {
			out = append(out, c)
		}
	}
	return out
}

func filterSearch(contacts []models.Contact, search string) []models.Contact {
	query := strings.ToLower(strings.TrimSpace(search))
	if query == "" {
		return contacts
	}

	out := contacts[:0:0]
	for _, c := range contacts {
		if matchesSearch(&c, query) {
			out = append(out, c)
		}
	}
	return out
}

func matchesSearch(c *models.Contact, query string) bool {
	for _, field := range []string{c.DisplayName(), c.Email, c.Phone, c.CompanyName, c.Notes, string(c.Source)} {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

type sortKey struct {
	text string
	at   time.Time
}

func (e *Engine) sort(contacts []models.Contact, spec SortSpec) {
	if len(contacts) < 2 {
		return
	}
	if spec.Field == "" {
		spec.Field = SortName
	}

	keys := make([]sortKey, len(contacts))
	for i := range contacts {
		keys[i] = e.sortKey(&contacts[i], spec)
	}

	byTime := spec.Field == SortLastContacted || spec.Field == SortCreated
	collator := collate.New(e.lang)
	desc := spec.Direction == Descending

	idx := make([]int, len(contacts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		var cmp int
		if byTime {
			cmp = ka.at.Compare(kb.at)
		} else {
			cmp = collator.CompareString(ka.text, kb.text)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	sorted := make([]models.Contact, len(contacts))
	for i, j := range idx {
		sorted[i] = contacts[j]
	}
	copy(contacts, sorted)
}

func (e *Engine) sortKey(c *models.Contact, spec SortSpec) sortKey {
	switch spec.Field {
	case SortEmail:
		return sortKey{text: c.Email}
	case SortPhone:
		return sortKey{text: c.Phone}
	case SortCompany:
		return sortKey{text: c.CompanyName}
	case SortJobTitle:
		return sortKey{text: c.JobTitle}
	case SortSource:
		return sortKey{text: string(c.Source)}
	case SortLastContacted:
		t, _ := parseTimestamp(c.LastContactedAt, e.loc)
		return sortKey{at: t}
	case SortCreated:
		return sortKey{at: c.CreatedAt}
	default:
		first, last := c.NameParts()
		if spec.NameOrder == LastNameFirst {
			return sortKey{text: strings.TrimSpace(last + " " + first)}
		}
		return sortKey{text: strings.TrimSpace(first + " " + last)}
	}
}
