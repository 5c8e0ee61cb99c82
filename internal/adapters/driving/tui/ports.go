// Package tui provides the interactive terminal browser for xtctx.
// It is a driving adapter: everything it shows comes through the driving ports.
package tui

import (
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

// Ports aggregates the driving ports the browser needs.
type Ports struct {
	// Search runs queries against the context and knowledge tables.
	Search driving.SearchService

	// Knowledge loads full knowledge records for the detail and list views.
	Knowledge driving.KnowledgeService

	// Ingestion reports source status. Optional; the sources view shows
	// a notice when it is nil.
	Ingestion driving.IngestionCoordinator
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Knowledge == nil {
		return ErrMissingKnowledgeService
	}
	return nil
}
