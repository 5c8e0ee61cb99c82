// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// linesPerResult is the rendered height of one entry: heading, detail, preview.
const linesPerResult = 3

// ResultList displays search hits in a navigable list.
type ResultList struct {
	results  []domain.SearchResult
	meta     []Meta
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates an empty result list.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init implements the component contract; the list needs no startup command.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update moves the selection on arrow and j/k keys.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the visible window of results around the selection.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.results)*linesPerResult+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results))), "")

	visible := max((r.height-2)/linesPerResult, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.results))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i))
	}
	return strings.Join(lines, "\n")
}

func (r *ResultList) renderResult(i int) string {
	res := &r.results[i]
	m := r.meta[i]

	indicator := "  "
	if i == r.selected {
		indicator = "> "
	}

	headWidth := max(r.width-12, 10)
	heading := Preview(m.Heading(res.ID), headWidth)
	score := fmt.Sprintf("%.3f", res.Score)

	var head string
	if i == r.selected {
		head = r.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, headWidth, heading, score))
	} else {
		head = r.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, headWidth, heading)) +
			r.styles.Muted.Render(score)
	}

	var detail string
	switch {
	case m.Type != "":
		detail = r.styles.KnowledgeBadge(domain.KnowledgeType(m.Type)) + r.styles.Muted.Render(m.When())
	case m.SourceSession != "":
		detail = r.styles.Muted.Render(fmt.Sprintf("session %s  %s", m.SourceSession, m.When()))
	}

	preview := r.styles.Muted.Render("    " + Preview(res.Text, max(r.width-6, 20)))
	return head + "\n    " + detail + "\n" + preview
}

// SetResults replaces the list contents and resets the selection.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.meta = make([]Meta, len(results))
	for i := range results {
		r.meta[i] = DecodeMeta(results[i].Metadata)
	}
	r.selected = 0
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index if it is in range.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedResult returns the selected result, or nil if the list is empty.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty reports whether the list has no results.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
