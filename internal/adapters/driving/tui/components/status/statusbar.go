// Package status renders the one-line bar under the search results.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/styles"
)

type State string

const (
	StateReady     State = "ready"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateError     State = "error"
)

// Bar shows what the search view is doing on the left and the keys that
// apply right now on the right. Hints are dropped when the bar is too narrow
// to hold both.
type Bar struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	width  int

	state State
	note  string
	count int
}

func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keys: km, width: 80, state: StateReady}
}

// Searching marks a query as in flight.
func (b *Bar) Searching(query string) {
	b.state, b.note, b.count = StateSearching, query, 0
}

// ShowResults reports n hits; note is appended after the count.
func (b *Bar) ShowResults(n int, note string) {
	b.state, b.note, b.count = StateResults, note, n
}

func (b *Bar) ShowError(err error) {
	b.state, b.note, b.count = StateError, "", 0
	if err != nil {
		b.note = err.Error()
	}
}

func (b *Bar) Reset() {
	b.state, b.note, b.count = StateReady, "", 0
}

func (b *Bar) SetWidth(width int) { b.width = width }

func (b *Bar) State() State     { return b.state }
func (b *Bar) Message() string  { return b.note }
func (b *Bar) ResultCount() int { return b.count }

func (b *Bar) View() string {
	left := b.left()
	right := b.styles.Muted.Render(Hints(b.hints()))

	gap := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return b.styles.StatusBar.Width(b.width).Render(left)
	}
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) left() string {
	switch b.state {
	case StateSearching:
		if b.note == "" {
			return b.styles.Muted.Render("Searching...")
		}
		return b.styles.Muted.Render(fmt.Sprintf("Searching for %q...", b.note))
	case StateError:
		if b.note == "" {
			return b.styles.Error.Render("Error")
		}
		return b.styles.Error.Render("Error: " + b.note)
	case StateResults:
		text := "1 result"
		if b.count != 1 {
			text = fmt.Sprintf("%d results", b.count)
		}
		if b.note != "" {
			text += " · " + b.note
		}
		return b.styles.Normal.Render(text)
	default:
		return b.styles.Muted.Render("Ready")
	}
}

func (b *Bar) hints() []key.Binding {
	if b.state == StateResults && b.count > 0 {
		return b.keys.ResultsHelp()
	}
	return b.keys.ShortHelp()
}

// Hints joins binding help as "key: desc | key: desc".
func Hints(bindings []key.Binding) string {
	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		parts[i] = kb.Help().Key + ": " + kb.Help().Desc
	}
	return strings.Join(parts, " | ")
}
