// Package presentation renders contact view tables for terminals.
package presentation

import (
	"fmt"
	"strings"

	"crm-contacts/internal/viewstate"

	"github.com/charmbracelet/lipgloss"
)

var Colours = struct {
	Text, Subtle, Blue, Green, Red, Yellow string
}{
	Text:   "#cdd6f4",
	Subtle: "#6c7086",
	Blue:   "#89b4fa",
	Green:  "#a6e3a1",
	Red:    "#f38ba8",
	Yellow: "#f9e2af",
}

const maxCellWidth = 32

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(Colours.Blue))
	cellStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(Colours.Text))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Colours.Green))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(Colours.Subtle))
	errorStyle    = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Colours.Red)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Colours.Red)).
			Padding(0, 1)
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Colours.Subtle)).
			Padding(0, 1)
)

// RenderTable draws the rendered columns and rows of a view. The actions
// column has no text form and is skipped.
func RenderTable(t viewstate.Table) string {
	var out strings.Builder

	if t.Error != "" {
		out.WriteString(errorStyle.Render("✗ " + t.Error))
		out.WriteString("\n")
	}
	if t.Loading {
		out.WriteString(subtleStyle.Render("Loading contacts..."))
		return out.String()
	}

	cols := make([]int, 0, len(t.Columns))
	for i, h := range t.Columns {
		if h.ID != viewstate.ColActions {
			cols = append(cols, i)
		}
	}

	headers := make([]string, len(cols))
	widths := make([]int, len(cols))
	for j, i := range cols {
		headers[j] = headerLabel(t.Columns[i])
		widths[j] = lipgloss.Width(headers[j])
	}
	cells := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells[r] = make([]string, len(cols))
		for j, i := range cols {
			text := ""
			if i < len(row.Cells) {
				text = truncate(row.Cells[i], maxCellWidth)
			}
			cells[r][j] = text
			if w := lipgloss.Width(text); w > widths[j] {
				widths[j] = w
			}
		}
	}

	var body strings.Builder
	body.WriteString("    ")
	for j, h := range headers {
		body.WriteString(headerStyle.Width(widths[j] + 2).Render(h))
	}
	body.WriteString("\n")

	if len(t.Rows) == 0 {
		body.WriteString(subtleStyle.Render("No contacts found matching your filters."))
	}
	for r, row := range t.Rows {
		style := cellStyle
		mark := "[ ] "
		if row.Selected {
			style = selectedStyle
			mark = "[x] "
		}
		body.WriteString(style.Render(mark))
		for j := range cols {
			body.WriteString(style.Width(widths[j] + 2).Render(cells[r][j]))
		}
		if r < len(t.Rows)-1 {
			body.WriteString("\n")
		}
	}

	out.WriteString(frameStyle.Render(body.String()))
	out.WriteString("\n")
	out.WriteString(subtleStyle.Render(footer(t)))
	return out.String()
}

func headerLabel(h viewstate.HeaderCell) string {
	label := h.Label
	if label == "" {
		label = string(h.ID)
	}
	switch h.Sorted {
	case viewstate.Ascending:
		label += " ▲"
	case viewstate.Descending:
		label += " ▼"
	}
	return label
}

func footer(t viewstate.Table) string {
	var b strings.Builder
	noun := "contacts"
	if len(t.Rows) == 1 {
		noun = "contact"
	}
	fmt.Fprintf(&b, "%d %s", len(t.Rows), noun)
	if len(t.Rows) != t.Total {
		fmt.Fprintf(&b, " of %d", t.Total)
	}
	if t.SelectedCount > 0 {
		fmt.Fprintf(&b, " · %d selected", t.SelectedCount)
	}
	if t.Refetching {
		b.WriteString(" · refreshing")
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if lipgloss.Width(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
