// Package knowledge lists saved decisions, error solutions and insights.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

// ErrNoKnowledgeService is reported when the list cannot be loaded.
var ErrNoKnowledgeService = errors.New("knowledge service not available")

// filters is the order tab cycles through; "" lists every type.
var filters = []domain.KnowledgeType{
	"",
	domain.KnowledgeDecision,
	domain.KnowledgeErrorSolution,
	domain.KnowledgeInsight,
}

// View is the knowledge record list.
type View struct {
	styles           *styles.Styles
	knowledgeService driving.KnowledgeService
	ctx              context.Context

	filter   domain.KnowledgeType
	records  []domain.KnowledgeRecord
	selected int
	width    int
	height   int
	loading  bool
	err      error
}

// NewView creates a knowledge list view.
func NewView(s *styles.Styles, knowledgeService driving.KnowledgeService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:           s,
		knowledgeService: knowledgeService,
		ctx:              context.Background(),
		width:            80,
		height:           24,
	}
}

// WithContext sets the context list calls run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the records for the current filter.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	svc := v.knowledgeService
	ctx := v.ctx
	kt := v.filter
	return func() tea.Msg {
		if svc == nil {
			return messages.KnowledgeLoaded{Err: ErrNoKnowledgeService}
		}
		records, err := svc.List(ctx, kt, "")
		return messages.KnowledgeLoaded{Records: records, Err: err}
	}
}

// Update handles messages for the knowledge view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.KnowledgeLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.records = msg.Records
		v.selected = min(v.selected, max(len(v.records)-1, 0))
		return v, nil
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.records)-1 {
			v.selected++
		}
	case "enter":
		if v.selected < len(v.records) {
			rec := v.records[v.selected]
			return v, func() tea.Msg { return messages.RecordOpened{Record: rec} }
		}
	case "tab":
		v.nextFilter()
		v.selected = 0
		return v, v.Init()
	case "r":
		return v, v.Init()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) nextFilter() {
	for i, f := range filters {
		if f == v.filter {
			v.filter = filters[(i+1)%len(filters)]
			return
		}
	}
	v.filter = ""
}

// View renders the list.
func (v *View) View() string {
	var b strings.Builder

	label := "all"
	if v.filter != "" {
		label = string(v.filter)
	}
	b.WriteString(v.styles.Title.Render("Knowledge"))
	b.WriteString(v.styles.Muted.Render(" [" + label + "]"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.records) == 0:
		b.WriteString(v.styles.Muted.Render("No knowledge records yet."))
	default:
		v.renderRecords(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [enter] open  [tab] type  [r] reload  [esc] back"))
	return b.String()
}

func (v *View) renderRecords(b *strings.Builder) {
	visible := max(v.height-6, 1)
	start := 0
	if v.selected >= visible {
		start = v.selected - visible + 1
	}
	end := min(start+visible, len(v.records))

	titleWidth := max(v.width-30, 10)
	for i := start; i < end; i++ {
		rec := &v.records[i]
		title := list.Preview(rec.Title, titleWidth)
		if !rec.IsActive() {
			title += " (superseded)"
		}
		line := fmt.Sprintf("%s %s", title, rec.CreatedAt.Format("2006-01-02"))

		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + line))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(line))
		}
		b.WriteString(" ")
		b.WriteString(v.styles.KnowledgeBadge(rec.Type))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%d records", len(v.records))))
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Filter returns the active type filter; empty means every type.
func (v *View) Filter() domain.KnowledgeType {
	return v.filter
}

// Records returns the loaded records.
func (v *View) Records() []domain.KnowledgeRecord {
	return v.records
}

// Selected returns the selected index.
func (v *View) Selected() int {
	return v.selected
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
