package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/views/detail"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/views/knowledge"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/views/sources"
)

// App is the browser's root model. It owns every view and routes
// messages to the active one.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	menuView      *menu.View
	searchView    *search.View
	knowledgeView *knowledge.View
	sourcesView   *sources.View
	detailView    *detail.View

	currentView messages.ViewType
	err         error

	width  int
	height int
	ready  bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates the browser over the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		menuView:      menu.NewView(s, km),
		searchView:    search.NewView(s, km, ports.Search),
		knowledgeView: knowledge.NewView(s, ports.Knowledge),
		sourcesView:   sources.NewView(s, ports.Ingestion),
		detailView:    detail.NewView(s, ports.Knowledge),
		currentView:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context every service call runs under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.knowledgeView.WithContext(ctx)
	a.sourcesView.WithContext(ctx)
	a.detailView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("xtctx")
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.ResultOpened:
		back := a.currentView
		a.currentView = messages.ViewDetail
		return a, a.detailView.ShowResult(msg.Result, msg.Table, back)

	case messages.RecordOpened:
		a.detailView.ShowRecord(msg.Record, a.currentView)
		a.currentView = messages.ViewDetail
		return a, nil

	case messages.RecordLoaded:
		a.detailView, cmd = a.detailView.Update(msg)
		return a, cmd

	case messages.KnowledgeLoaded:
		a.knowledgeView, cmd = a.knowledgeView.Update(msg)
		return a, cmd

	case messages.SourcesLoaded, messages.IngestCompleted:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward hands msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
	case messages.ViewKnowledge:
		a.knowledgeView, cmd = a.knowledgeView.Update(msg)
	case messages.ViewSources:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
	case messages.ViewDetail:
		a.detailView, cmd = a.detailView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// switchTo activates view. Returning from the detail pane keeps the
// state of the view it was opened from.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	from := a.currentView
	a.currentView = view

	switch view {
	case messages.ViewSearch:
		if from == messages.ViewDetail {
			return nil
		}
		a.searchView.Reset()
		return a.searchView.Init()
	case messages.ViewKnowledge:
		if from == messages.ViewDetail {
			return nil
		}
		return a.knowledgeView.Init()
	case messages.ViewSources:
		return a.sourcesView.Init()
	case messages.ViewMenu, messages.ViewDetail, messages.ViewHelp:
	}
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewKnowledge:
		return a.knowledgeView.View()
	case messages.ViewSources:
		return a.sourcesView.View()
	case messages.ViewDetail:
		return a.detailView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Muted.Render("Search modes: hybrid fuses keyword and semantic rankings."))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// Run starts the browser in the alternate screen and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error surfaced by a view.
func (a *App) Err() error {
	return a.err
}

// Ready reports whether the app has terminal dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sizes every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.knowledgeView.SetDimensions(width, height)
	a.sourcesView.SetDimensions(width, height)
	a.detailView.SetDimensions(width, height)
}

// SearchView exposes the search view for tests and embedding.
func (a *App) SearchView() *search.View {
	return a.searchView
}

// DetailView exposes the detail view for tests and embedding.
func (a *App) DetailView() *detail.View {
	return a.detailView
}
