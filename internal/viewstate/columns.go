package viewstate

import (
	"sort"
	"strings"
	"time"

	"crm-contacts/internal/models"
)

type ColumnID string

const (
	ColName          ColumnID = "name"
	ColActions       ColumnID = "actions"
	ColEmail         ColumnID = "email"
	ColPhone         ColumnID = "phone"
	ColCompany       ColumnID = "company"
	ColJobTitle      ColumnID = "job_title"
	ColGroups        ColumnID = "groups"
	ColTags          ColumnID = "tags"
	ColSource        ColumnID = "source"
	ColLastContacted ColumnID = "last_contacted"
	ColNotes         ColumnID = "notes"
	ColAddress       ColumnID = "address"
	ColCity          ColumnID = "city"
	ColState         ColumnID = "state"
	ColPostalCode    ColumnID = "postal_code"
	ColCountry       ColumnID = "country"
	ColWebsite       ColumnID = "website"
	ColEnrichment    ColumnID = "enrichment"
	ColCreated       ColumnID = "created_at"
)

// CellContext carries per-row data that is not part of the contact itself.
type CellContext struct {
	Groups []models.Group
}

// Column is one entry of the static column registry.
type Column struct {
	ID    ColumnID
	Label string
	// Toggleable is false for columns that are always shown.
	Toggleable bool
	// SortField is empty when the column is not sortable.
	SortField SortField
	Format    func(c *models.Contact, ctx CellContext) string
}

func text(f func(c *models.Contact) string) func(*models.Contact, CellContext) string {
	return func(c *models.Contact, _ CellContext) string { return f(c) }
}

// catalog is the default column order.
var catalog = []Column{
	{ID: ColName, Label: "Name", SortField: SortName, Format: text(func(c *models.Contact) string { return c.DisplayName() })},
	{ID: ColActions, Label: "", Format: text(func(*models.Contact) string { return "" })},
	{ID: ColEmail, Label: "Email", Toggleable: true, SortField: SortEmail, Format: text(func(c *models.Contact) string { return c.Email })},
	{ID: ColPhone, Label: "Phone", Toggleable: true, SortField: SortPhone, Format: text(formatPhone)},
	{ID: ColCompany, Label: "Company", Toggleable: true, SortField: SortCompany, Format: text(func(c *models.Contact) string { return c.CompanyName })},
	{ID: ColJobTitle, Label: "Job Title", Toggleable: true, SortField: SortJobTitle, Format: text(func(c *models.Contact) string { return c.JobTitle })},
	{ID: ColGroups, Label: "Groups", Toggleable: true, Format: formatGroups},
	{ID: ColTags, Label: "Tags", Toggleable: true, Format: text(func(c *models.Contact) string { return strings.Join(c.Tags, ", ") })},
	{ID: ColSource, Label: "Source", Toggleable: true, SortField: SortSource, Format: text(func(c *models.Contact) string { return c.Source.Label() })},
	{ID: ColLastContacted, Label: "Last Contacted", Toggleable: true, SortField: SortLastContacted, Format: text(formatLastContacted)},
	{ID: ColNotes, Label: "Notes", Toggleable: true, Format: text(func(c *models.Contact) string { return c.Notes })},
	{ID: ColAddress, Label: "Address", Toggleable: true, Format: text(func(c *models.Contact) string { return c.AddressLine })},
	{ID: ColCity, Label: "City", Toggleable: true, Format: text(func(c *models.Contact) string { return c.City })},
	{ID: ColState, Label: "State", Toggleable: true, Format: text(func(c *models.Contact) string { return c.State })},
	{ID: ColPostalCode, Label: "Postal Code", Toggleable: true, Format: text(func(c *models.Contact) string { return c.PostalCode })},
	{ID: ColCountry, Label: "Country", Toggleable: true, Format: text(func(c *models.Contact) string { return c.Country })},
	{ID: ColWebsite, Label: "Website", Toggleable: true, Format: text(func(c *models.Contact) string { return c.Website })},
	{ID: ColEnrichment, Label: "Enrichment", Toggleable: true, Format: text(func(c *models.Contact) string { return c.EnrichmentStatus })},
	{ID: ColCreated, Label: "Created", Toggleable: true, SortField: SortCreated, Format: text(func(c *models.Contact) string {
		if c.CreatedAt.IsZero() {
			return ""
		}
		return c.CreatedAt.Format("2006-01-02")
	})},
}

var registry = func() map[ColumnID]Column {
	m := make(map[ColumnID]Column, len(catalog))
	for _, col := range catalog {
		m[col.ID] = col
	}
	return m
}()

// LookupColumn returns the registry entry for id.
func LookupColumn(id ColumnID) (Column, bool) {
	col, ok := registry[id]
	return col, ok
}

// Catalog returns all columns in default order.
func Catalog() []Column {
	out := make([]Column, len(catalog))
	copy(out, catalog)
	return out
}

func formatPhone(c *models.Contact) string {
	if c.Phone == "" {
		return ""
	}
	if c.CountryCode == "" {
		return c.Phone
	}
	code := c.CountryCode
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}
	return code + " " + c.Phone
}

func formatLastContacted(c *models.Contact) string {
	if c.LastContactedAt == nil {
		return "Never"
	}
	t, ok := parseTimestamp(c.LastContactedAt, time.UTC)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatGroups(_ *models.Contact, ctx CellContext) string {
	names := make([]string, 0, len(ctx.Groups))
	for _, g := range ctx.Groups {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// DefaultVisibleColumns is the initial visible set.
var DefaultVisibleColumns = []ColumnID{ColEmail, ColPhone, ColCompany, ColSource, ColLastContacted}

// ColumnModel tracks visible columns and their order.
type ColumnModel struct {
	visible map[ColumnID]bool
	order   []ColumnID
	drag    DragState
}

// DragState is the pure state of an in-progress column drag.
type DragState struct {
	Dragging ColumnID
	Over     ColumnID
}

// NewColumnModel builds a model; a nil order uses the catalog order.
func NewColumnModel(visible, order []ColumnID) *ColumnModel {
	m := &ColumnModel{visible: make(map[ColumnID]bool)}
	for _, id := range visible {
		m.visible[id] = true
	}
	if order == nil {
		for _, col := range catalog {
			m.order = append(m.order, col.ID)
		}
	} else {
		m.order = append([]ColumnID(nil), order...)
	}
	return m
}

func DefaultColumnModel() *ColumnModel {
	return NewColumnModel(DefaultVisibleColumns, nil)
}

func isPinned(id ColumnID) bool {
	return id == ColName || id == ColActions
}

// Toggle flips visibility. Pinned and unknown columns are not toggleable
// and report false.
func (m *ColumnModel) Toggle(id ColumnID) bool {
	col, ok := registry[id]
	if !ok || !col.Toggleable {
		return false
	}
	if m.visible[id] {
		delete(m.visible, id)
	} else {
		m.visible[id] = true
	}
	return true
}

func (m *ColumnModel) IsVisible(id ColumnID) bool {
	return isPinned(id) || m.visible[id]
}

// Visible returns the visible set, sorted, pinned columns excluded.
func (m *ColumnModel) Visible() []ColumnID {
	out := make([]ColumnID, 0, len(m.visible))
	for id, on := range m.visible {
		if on && !isPinned(id) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *ColumnModel) Order() []ColumnID {
	return append([]ColumnID(nil), m.order...)
}

func (m *ColumnModel) indexOf(id ColumnID) int {
	for i, o := range m.order {
		if o == id {
			return i
		}
	}
	return -1
}

// Reorder moves dragged to just before target's current position. Unknown
// ids and self drops leave the order unchanged.
func (m *ColumnModel) Reorder(dragged, target ColumnID) {
	if dragged == target {
		return
	}
	from := m.indexOf(dragged)
	if from < 0 || m.indexOf(target) < 0 {
		return
	}

	order := append(m.order[:from:from], m.order[from+1:]...)
	to := -1
	for i, o := range order {
		if o == target {
			to = i
			break
		}
	}

	out := make([]ColumnID, 0, len(m.order))
	out = append(out, order[:to]...)
	out = append(out, dragged)
	out = append(out, order[to:]...)
	m.order = out
}

// Rendered returns the columns to display: name, actions, then the visible
// columns in stored order. Visible ids missing from the order come last,
// alphabetically.
func (m *ColumnModel) Rendered() []ColumnID {
	out := []ColumnID{ColName, ColActions}
	seen := map[ColumnID]bool{ColName: true, ColActions: true}

	for _, id := range m.order {
		if m.visible[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}

	var unknown []ColumnID
	for id, on := range m.visible {
		if on && !seen[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(out, unknown...)
}

func (m *ColumnModel) DragStart(id ColumnID) {
	m.drag = DragState{Dragging: id}
}

func (m *ColumnModel) DragOver(id ColumnID) {
	if m.drag.Dragging == "" {
		return
	}
	m.drag.Over = id
}

// Drop reorders the dragged column before target and ends the drag.
func (m *ColumnModel) Drop(target ColumnID) {
	if m.drag.Dragging != "" {
		m.Reorder(m.drag.Dragging, target)
	}
	m.drag = DragState{}
}

func (m *ColumnModel) DragEnd() {
	m.drag = DragState{}
}

func (m *ColumnModel) Drag() DragState {
	return m.drag
}

// DragClass is the highlight class of a header for the current drag state.
func (m *ColumnModel) DragClass(id ColumnID) string {
	return DragClass(m.drag, id)
}

func DragClass(s DragState, id ColumnID) string {
	switch {
	case s.Dragging == "":
		return ""
	case id == s.Dragging:
		return "dragging"
	case id == s.Over:
		return "drag-over"
	default:
		return ""
	}
}
