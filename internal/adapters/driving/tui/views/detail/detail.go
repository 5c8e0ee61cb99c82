// Package detail shows one search hit or knowledge record in a scrollable pane.
package detail

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

// reservedLines covers the title, separator, position line and help.
const reservedLines = 6

// ErrNoKnowledgeService is reported when a knowledge hit cannot be expanded.
var ErrNoKnowledgeService = errors.New("knowledge service not available")

// View is the detail pane.
type View struct {
	styles           *styles.Styles
	knowledgeService driving.KnowledgeService
	ctx              context.Context

	// back is where esc returns to.
	back messages.ViewType

	title        string
	fields       [][2]string
	body         string
	lines        []string
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error
}

// NewView creates a detail view.
func NewView(s *styles.Styles, knowledgeService driving.KnowledgeService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:           s,
		knowledgeService: knowledgeService,
		ctx:              context.Background(),
		back:             messages.ViewSearch,
		width:            80,
		height:           24,
	}
}

// WithContext sets the context record lookups run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// ShowResult displays a search hit. Knowledge hits are shown from the
// index straight away and then replaced by the full stored record.
func (v *View) ShowResult(r domain.SearchResult, table string, back messages.ViewType) tea.Cmd {
	v.reset(back)

	m := list.DecodeMeta(r.Metadata)
	v.title = m.Heading(r.ID)
	v.fields = compact([][2]string{
		{"ID", r.ID},
		{"Source", m.SourceTool},
		{"Session", m.SourceSession},
		{"Role", m.Role},
		{"Type", m.Type},
		{"When", m.When()},
		{"Files", strings.Join(m.ReferencedFiles, ", ")},
		{"Score", fmt.Sprintf("%.4f", r.Score)},
	})
	v.body = r.Text
	v.wrap()

	if table != domain.TableKnowledge {
		return nil
	}
	v.loading = true
	return v.loadRecord(r.ID)
}

// ShowRecord displays a knowledge record already in hand.
func (v *View) ShowRecord(rec domain.KnowledgeRecord, back messages.ViewType) {
	v.reset(back)
	v.setRecord(&rec)
}

func (v *View) reset(back messages.ViewType) {
	v.back = back
	v.title = ""
	v.fields = nil
	v.body = ""
	v.lines = nil
	v.scrollOffset = 0
	v.loading = false
	v.err = nil
}

func (v *View) setRecord(rec *domain.KnowledgeRecord) {
	var created string
	if !rec.CreatedAt.IsZero() {
		created = domain.FormatTimestamp(rec.CreatedAt)
	}
	v.title = rec.Title
	v.fields = compact([][2]string{
		{"ID", rec.ID},
		{"Type", string(rec.Type)},
		{"Created", created},
		{"Source", rec.SourceTool},
		{"Session", rec.SourceSession},
		{"Supersedes", rec.Supersedes},
		{"Superseded by", rec.SupersededBy},
		{"Tags", strings.Join(rec.DomainTags, ", ")},
		{"Files", strings.Join(rec.ReferencedFiles, ", ")},
	})
	v.body = rec.Body
	v.wrap()
}

func (v *View) loadRecord(id string) tea.Cmd {
	svc := v.knowledgeService
	ctx := v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.RecordLoaded{ID: id, Err: ErrNoKnowledgeService}
		}
		rec, err := svc.Get(ctx, id)
		return messages.RecordLoaded{ID: id, Record: rec, Err: err}
	}
}

// Init implements the view contract; content arrives through Show*.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RecordLoaded:
		v.loading = false
		switch {
		case msg.Err != nil:
			// The index copy stays on screen.
			v.err = msg.Err
		case msg.Record != nil:
			v.setRecord(msg.Record)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		v.scrollTo(v.scrollOffset - 1)
	case "down", "j":
		v.scrollTo(v.scrollOffset + 1)
	case "pgup", "ctrl+u":
		v.scrollTo(v.scrollOffset - v.visibleLines())
	case "pgdown", "ctrl+d":
		v.scrollTo(v.scrollOffset + v.visibleLines())
	case "home", "g":
		v.scrollTo(0)
	case "end", "G":
		v.scrollTo(v.maxScrollOffset())
	case "esc":
		back := v.back
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}
	return v, nil
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = min(max(offset, 0), v.maxScrollOffset())
}

// wrap lays the fields and body out as display lines.
func (v *View) wrap() {
	width := max(v.width-4, 20)

	v.lines = v.lines[:0]
	for _, f := range v.fields {
		v.lines = append(v.lines, v.styles.Label.Render(f[0]+":")+" "+f[1])
	}
	if len(v.fields) > 0 {
		v.lines = append(v.lines, "")
	}
	for _, line := range strings.Split(v.body, "\n") {
		r := []rune(line)
		for len(r) > width {
			v.lines = append(v.lines, string(r[:width]))
			r = r[width:]
		}
		v.lines = append(v.lines, string(r))
	}
}

func (v *View) visibleLines() int {
	return max(v.height-reservedLines, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the detail pane.
func (v *View) View() string {
	var b strings.Builder

	title := v.title
	if title == "" {
		title = "Detail"
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	}
	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading record..."))
		b.WriteString("\n")
	}

	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.lines[i])
		b.WriteString("\n")
	}

	if len(v.lines) > visible {
		pct := 0
		if m := v.maxScrollOffset(); m > 0 {
			pct = v.scrollOffset * 100 / m
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			pct, v.scrollOffset+1, end, len(v.lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))
	return b.String()
}

// SetDimensions sets the pane size and rewraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.wrap()
	v.scrollTo(v.scrollOffset)
}

// Title returns the heading of what is shown.
func (v *View) Title() string {
	return v.title
}

// Body returns the unwrapped text of what is shown.
func (v *View) Body() string {
	return v.body
}

// Back returns the view esc returns to.
func (v *View) Back() messages.ViewType {
	return v.back
}

// Loading reports whether a record fetch is outstanding.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// compact drops fields with empty values.
func compact(fields [][2]string) [][2]string {
	out := fields[:0]
	for _, f := range fields {
		if f[1] != "" {
			out = append(out, f)
		}
	}
	return out
}
