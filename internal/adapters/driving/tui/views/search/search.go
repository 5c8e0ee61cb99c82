// Package search provides the main search view for the TUI.
package search

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

// ResultLimit is how many hits one query asks for.
const ResultLimit = 25

// ErrNoSearchService indicates that no search service was provided.
var ErrNoSearchService = errors.New("search service is required")

// modes is the order tab cycles through.
var modes = []domain.SearchMode{
	domain.SearchModeHybrid,
	domain.SearchModeKeyword,
	domain.SearchModeSemantic,
}

// View is the query box, result list and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.SearchInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	ctx           context.Context

	mode  domain.SearchMode
	table string

	// lastQuery is the query the current results answer.
	lastQuery string

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a search view in input mode.
func NewView(s *styles.Styles, km *keymap.KeyMap, searchService driving.SearchService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewSearchInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		searchService: searchService,
		ctx:           context.Background(),
		mode:          domain.SearchModeHybrid,
		table:         domain.TableContext,
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context searches run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the input cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case keymap.Matches(msg.String(), v.keymap.CycleMode):
		v.cycleMode()
		return v, v.rerun()
	case keymap.Matches(msg.String(), v.keymap.ToggleTable):
		v.toggleTable()
		return v, v.rerun()
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit(v.input.Value())
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case msg.Type == tea.KeyEnter:
		if r := v.list.SelectedResult(); r != nil {
			opened := messages.ResultOpened{Result: *r, Table: v.table}
			return v, func() tea.Msg { return opened }
		}
	case keymap.Matches(msg.String(), v.keymap.NewSearch):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	default:
		v.list, _ = v.list.Update(msg)
	}
	return v, nil
}

// submit starts a search for query. Blank queries are ignored.
func (v *View) submit(query string) tea.Cmd {
	if query == "" {
		return nil
	}
	v.statusbar.Searching(query)
	v.focusInput = false
	v.input.Blur()
	return v.performSearch(query)
}

// rerun repeats the last search after a scope change.
func (v *View) rerun() tea.Cmd {
	if v.focusInput || v.lastQuery == "" {
		return nil
	}
	return v.submit(v.lastQuery)
}

func (v *View) cycleMode() {
	next := modes[0]
	for i, m := range modes {
		if m == v.mode {
			next = modes[(i+1)%len(modes)]
			break
		}
	}
	v.mode = next
	v.input.SetScope(v.mode, v.table)
}

func (v *View) toggleTable() {
	if v.table == domain.TableContext {
		v.table = domain.TableKnowledge
	} else {
		v.table = domain.TableContext
	}
	v.input.SetScope(v.mode, v.table)
}

// performSearch runs the query off the update loop.
func (v *View) performSearch(query string) tea.Cmd {
	svc := v.searchService
	ctx := v.ctx
	opts := domain.SearchOptions{Table: v.table, Mode: v.mode, Limit: ResultLimit}
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}
		results, err := svc.Search(ctx, query, opts)
		return messages.SearchCompleted{Query: query, Table: opts.Table, Results: results, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.lastQuery = msg.Query
	v.list.SetResults(msg.Results)
	v.statusbar.ShowResults(len(msg.Results), string(v.mode))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.ShowError(err)
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("xtctx"), "", v.input.View(), ""}
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	sections = append(sections, v.list.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sizes the view and its components.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-8)
	v.statusbar.SetWidth(width)
}

// Ready reports whether the view has dimensions.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the text in the input box.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the text in the input box.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Mode returns the active search mode.
func (v *View) Mode() domain.SearchMode {
	return v.mode
}

// Table returns the active record table.
func (v *View) Table() string {
	return v.table
}

// Results returns the current hits.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected hit.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused reports whether keys go to the input box.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to an empty input, keeping mode and table.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.lastQuery = ""
	v.err = nil
	v.statusbar.Reset()
}
