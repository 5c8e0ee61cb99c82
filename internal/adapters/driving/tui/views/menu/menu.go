// Package menu is the landing screen of the browser.
package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/styles"
)

// Entry is one destination. Shortcut jumps straight to it from the menu.
type Entry struct {
	Label    string
	Hint     string
	Shortcut string
	View     messages.ViewType
	Quit     bool
}

func defaultEntries() []Entry {
	return []Entry{
		{Label: "Search", Shortcut: "1", Hint: "past conversations and knowledge", View: messages.ViewSearch},
		{Label: "Knowledge", Shortcut: "2", Hint: "decisions, error fixes, insights", View: messages.ViewKnowledge},
		{Label: "Sources", Shortcut: "3", Hint: "AI tool histories on this machine", View: messages.ViewSources},
		{Label: "Help", Shortcut: "?", View: messages.ViewHelp},
		{Label: "Quit", Shortcut: "q", Quit: true},
	}
}

type View struct {
	styles  *styles.Styles
	keys    *keymap.KeyMap
	entries []Entry
	cursor  int
	ready   bool
}

func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{styles: s, keys: km, entries: defaultEntries()}
}

func (v *View) Init() tea.Cmd { return nil }

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		for _, e := range v.entries {
			if msg.String() == e.Shortcut {
				return v, choose(e)
			}
		}
		switch {
		case key.Matches(msg, v.keys.Up):
			v.cursor = max(v.cursor-1, 0)
		case key.Matches(msg, v.keys.Down):
			v.cursor = min(v.cursor+1, len(v.entries)-1)
		case key.Matches(msg, v.keys.Open):
			return v, choose(v.entries[v.cursor])
		}
	}
	return v, nil
}

func choose(e Entry) tea.Cmd {
	if e.Quit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: e.View} }
}

func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	labelWidth := 0
	for _, e := range v.entries {
		labelWidth = max(labelWidth, lipgloss.Width(e.Label))
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("xtctx"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Shared memory for AI coding tools"))
	b.WriteString("\n\n")

	for i, e := range v.entries {
		label := fmt.Sprintf("%-*s", labelWidth, e.Label)
		if i == v.cursor {
			b.WriteString(v.styles.Selected.Render("> " + label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		b.WriteString("  " + v.styles.Help.Render("["+e.Shortcut+"]"))
		if e.Hint != "" {
			b.WriteString("  " + v.styles.Muted.Render(e.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("j/k move · enter open · or press the key in brackets"))
	return b.String()
}

func (v *View) SetDimensions(_, _ int) {
	v.ready = true
}

// Selected is the cursor position.
func (v *View) Selected() int { return v.cursor }
