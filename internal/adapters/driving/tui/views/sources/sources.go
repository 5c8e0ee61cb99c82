// Package sources shows which AI tool histories are present and how far
// ingestion has read them.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

// ErrNoIngestion is reported when the browser runs without a coordinator.
var ErrNoIngestion = errors.New("ingestion is not available in this session")

// View is the source status list.
type View struct {
	styles    *styles.Styles
	ingestion driving.IngestionCoordinator
	ctx       context.Context

	sources  []domain.SourceStatus
	selected int
	width    int
	height   int
	loading  bool
	running  bool
	notice   string
	err      error
}

// NewView creates a sources view. ingestion may be nil.
func NewView(s *styles.Styles, ingestion driving.IngestionCoordinator) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		ingestion: ingestion,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
}

// WithContext sets the context coordinator calls run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads source status.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadSources()
}

func (v *View) loadSources() tea.Cmd {
	ing := v.ingestion
	ctx := v.ctx
	return func() tea.Msg {
		if ing == nil {
			return messages.SourcesLoaded{Err: ErrNoIngestion}
		}
		statuses, err := ing.Sources(ctx)
		return messages.SourcesLoaded{Sources: statuses, Err: err}
	}
}

// runCycle starts one incremental ingestion pass.
func (v *View) runCycle() tea.Cmd {
	ing := v.ingestion
	ctx := v.ctx
	return func() tea.Msg {
		if ing == nil {
			return messages.IngestCompleted{Err: ErrNoIngestion}
		}
		res, err := ing.RunCycle(ctx)
		return messages.IngestCompleted{Result: res, Err: err}
	}
}

// Update handles messages for the sources view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SourcesLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.sources = msg.Sources
		v.selected = min(v.selected, max(len(v.sources)-1, 0))
		return v, nil

	case messages.IngestCompleted:
		v.running = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Ingested %d items from %d sources in %s.",
			msg.Result.ItemsProcessed, msg.Result.SourcesProcessed,
			msg.Result.Duration().Round(time.Millisecond))
		return v, v.Init()
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
		if v.selected < len(v.sources)-1 {
			v.selected++
		}
	case "r":
		return v, v.Init()
	case "i":
		if v.running {
			return v, nil
		}
		v.running = true
		v.notice = ""
		return v, v.runCycle()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

// View renders the sources view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Sources"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading sources..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.sources) == 0:
		b.WriteString(v.styles.Muted.Render("No sources registered."))
	default:
		for i := range v.sources {
			b.WriteString(v.renderSource(i, &v.sources[i]))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case v.running:
		b.WriteString(v.styles.Muted.Render("Ingesting..."))
		b.WriteString("\n")
	case v.notice != "":
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [i] ingest now  [r] reload  [esc] back"))
	return b.String()
}

func (v *View) renderSource(i int, src *domain.SourceStatus) string {
	indicator := "  "
	if i == v.selected {
		indicator = "> "
	}

	state := v.styles.Success.Render("available")
	if !src.Available {
		state = v.styles.Muted.Render("not found")
	}

	name := fmt.Sprintf("%s%-12s ", indicator, src.Name)
	if i == v.selected {
		name = v.styles.Selected.Render(name)
	} else {
		name = v.styles.Normal.Render(name)
	}

	lines := []string{name + state}
	if i == v.selected {
		for _, p := range src.StorePaths {
			lines = append(lines, v.styles.Muted.Render("    "+p))
		}
	}
	if !src.Checkpoint.IsZero() {
		lines = append(lines, v.styles.Muted.Render(
			"    since "+src.Checkpoint.LastTimestamp.Local().Format("2006-01-02 15:04:05")))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Sources returns the loaded source status.
func (v *View) Sources() []domain.SourceStatus {
	return v.sources
}

// SelectedIndex returns the selected source index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Running reports whether an ingestion cycle is in flight.
func (v *View) Running() bool {
	return v.running
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
