// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// Theme is the colour palette.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
	Bar        lipgloss.Color

	// Decision, ErrorSolution and Insight colour knowledge badges.
	Decision      lipgloss.Color
	ErrorSolution lipgloss.Color
	Insight       lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:       lipgloss.Color("#2DD4BF"), // teal
		Secondary:     lipgloss.Color("#93C5FD"), // sky
		Foreground:    lipgloss.Color("#E5E7EB"),
		Muted:         lipgloss.Color("#6B7280"),
		Success:       lipgloss.Color("#86EFAC"),
		Warning:       lipgloss.Color("#FCD34D"),
		Error:         lipgloss.Color("#FCA5A5"),
		Border:        lipgloss.Color("#374151"),
		Bar:           lipgloss.Color("#111827"),
		Decision:      lipgloss.Color("#C4B5FD"),
		ErrorSolution: lipgloss.Color("#FDBA74"),
		Insight:       lipgloss.Color("#A5F3FC"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style

	// Label renders field names in detail views ("Source:", "Session:").
	Label lipgloss.Style

	// Badge is the base for inline tags such as roles and knowledge types.
	Badge lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary),
		Normal:   lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:    lipgloss.NewStyle().Foreground(theme.Muted),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Bar).
			Background(theme.Primary),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(theme.Bar).
			Padding(0, 1),
		Help: lipgloss.NewStyle().Foreground(theme.Muted),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),
		Label: lipgloss.NewStyle().Bold(true).Foreground(theme.Muted),
		Badge: lipgloss.NewStyle().Bold(true).Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// KnowledgeBadge renders a knowledge type as a coloured tag.
// Unknown types fall back to the muted colour.
func (s *Styles) KnowledgeBadge(kt domain.KnowledgeType) string {
	c := s.theme.Muted
	switch kt {
	case domain.KnowledgeDecision:
		c = s.theme.Decision
	case domain.KnowledgeErrorSolution:
		c = s.theme.ErrorSolution
	case domain.KnowledgeInsight:
		c = s.theme.Insight
	}
	return s.Badge.Foreground(c).Render(string(kt))
}

// RoleBadge renders a message role. User turns use the secondary colour,
// everything else the primary.
func (s *Styles) RoleBadge(role string) string {
	if role == "" {
		return ""
	}
	c := s.theme.Primary
	if strings.EqualFold(role, "user") {
		c = s.theme.Secondary
	}
	return s.Badge.Foreground(c).Render(role)
}
