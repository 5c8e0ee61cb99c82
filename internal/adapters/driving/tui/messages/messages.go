// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// SearchCompleted carries search results back to the model.
type SearchCompleted struct {
	Query   string
	Table   string
	Results []domain.SearchResult
	Err     error
}

// ResultOpened is sent when a search hit is opened for reading.
type ResultOpened struct {
	Result domain.SearchResult
	Table  string
}

// RecordOpened is sent when a knowledge record is opened from the list.
type RecordOpened struct {
	Record domain.KnowledgeRecord
}

// RecordLoaded carries a full knowledge record fetched for the detail view.
type RecordLoaded struct {
	ID     string
	Record *domain.KnowledgeRecord
	Err    error
}

// KnowledgeLoaded carries the knowledge list.
type KnowledgeLoaded struct {
	Records []domain.KnowledgeRecord
	Err     error
}

// SourcesLoaded carries source availability and checkpoints.
type SourcesLoaded struct {
	Sources []domain.SourceStatus
	Err     error
}

// IngestCompleted reports a cycle started from the sources view.
type IngestCompleted struct {
	Result domain.CycleResult
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the search input and results view.
	ViewSearch
	// ViewKnowledge lists knowledge records.
	ViewKnowledge
	// ViewSources shows source availability.
	ViewSources
	// ViewDetail shows one hit or record in full.
	ViewDetail
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewKnowledge:
		return "knowledge"
	case ViewSources:
		return "sources"
	case ViewDetail:
		return "detail"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred is sent when an error needs to be displayed.
type ErrorOccurred struct {
	Err error
}

// Quit is sent to exit the application.
type Quit struct{}
