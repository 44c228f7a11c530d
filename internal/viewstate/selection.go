package viewstate

import "crm-contacts/internal/models"

// Selection is the set of selected contact ids. Whether every filtered row
// is selected is always derived, never stored.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

func (s *Selection) Len() int {
	return len(s.ids)
}

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// SelectAll clears the selection when it already covers filtered, otherwise
// selects every filtered row.
func (s *Selection) SelectAll(filtered []models.Contact) {
	if s.AllSelected(filtered) {
		s.Clear()
		return
	}
	s.ids = make(map[string]struct{}, len(filtered))
	for _, c := range filtered {
		s.ids[c.ID] = struct{}{}
	}
}

func (s *Selection) SelectRow(id string, selected bool) {
	if selected {
		s.ids[id] = struct{}{}
		return
	}
	delete(s.ids, id)
}

// Prune drops ids that are no longer among the filtered rows.
func (s *Selection) Prune(filtered []models.Contact) {
	if len(s.ids) == 0 {
		return
	}
	keep := make(map[string]struct{}, len(filtered))
	for _, c := range filtered {
		if _, ok := s.ids[c.ID]; ok {
			keep[c.ID] = struct{}{}
		}
	}
	s.ids = keep
}

func (s *Selection) AllSelected(filtered []models.Contact) bool {
	if len(s.ids) == 0 || len(s.ids) != len(filtered) {
		return false
	}
	for _, c := range filtered {
		if _, ok := s.ids[c.ID]; !ok {
			return false
		}
	}
	return true
}

// Snapshot returns the selected ids in row order.
func (s *Selection) Snapshot(filtered []models.Contact) []string {
	out := make([]string, 0, len(s.ids))
	for _, c := range filtered {
		if _, ok := s.ids[c.ID]; ok {
			out = append(out, c.ID)
		}
	}
	return out
}

func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}
