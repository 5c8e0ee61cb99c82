// Package input provides text input components for the TUI.
package input

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/xtctx/internal/core/domain"
)

const (
	charLimit     = 512
	minInputWidth = 20
)

// SearchInput is a query box whose label shows the active mode and table.
type SearchInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	mode      domain.SearchMode
	table     string
	width     int
}

// NewSearchInput creates a focused search input defaulting to hybrid
// search over the context table.
func NewSearchInput(s *styles.Styles) *SearchInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "What did we decide about..."
	ti.Focus()
	ti.CharLimit = charLimit
	ti.Width = 50

	return &SearchInput{
		textinput: ti,
		styles:    s,
		mode:      domain.SearchModeHybrid,
		table:     domain.TableContext,
		width:     60,
	}
}

// Init starts the cursor blinking.
func (s *SearchInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards messages to the underlying text input.
func (s *SearchInput) Update(msg tea.Msg) (*SearchInput, tea.Cmd) {
	var cmd tea.Cmd
	s.textinput, cmd = s.textinput.Update(msg)
	return s, cmd
}

// View renders the label and the input box side by side.
func (s *SearchInput) View() string {
	label := s.styles.Title.Render("Search ") +
		s.styles.Muted.Render(fmt.Sprintf("[%s · %s] ", s.mode, s.table))
	box := s.styles.InputField.Render(s.textinput.View())
	//nolint:misspell // lipgloss.Center is the library constant
	return lipgloss.JoinHorizontal(lipgloss.Center, label, box)
}

// SetScope sets the mode and table shown in the label.
func (s *SearchInput) SetScope(mode domain.SearchMode, table string) {
	s.mode = mode
	s.table = table
}

// Value returns the current query text.
func (s *SearchInput) Value() string {
	return s.textinput.Value()
}

// SetValue replaces the query text.
func (s *SearchInput) SetValue(value string) {
	s.textinput.SetValue(value)
}

// Focus gives the input keyboard focus.
func (s *SearchInput) Focus() tea.Cmd {
	return s.textinput.Focus()
}

// Blur removes keyboard focus.
func (s *SearchInput) Blur() {
	s.textinput.Blur()
}

// Focused reports whether the input has focus.
func (s *SearchInput) Focused() bool {
	return s.textinput.Focused()
}

// SetWidth sizes the box, leaving room for the label.
func (s *SearchInput) SetWidth(width int) {
	s.width = width
	s.textinput.Width = max(width-30, minInputWidth)
}

// Width returns the current width.
func (s *SearchInput) Width() int {
	return s.width
}

// Reset clears the query.
func (s *SearchInput) Reset() {
	s.textinput.Reset()
}
