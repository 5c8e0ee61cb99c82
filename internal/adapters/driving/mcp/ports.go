package mcp

import (
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Search runs hybrid retrieval over record tables.
	Search driving.SearchService

	// Knowledge reads and writes knowledge records.
	Knowledge driving.KnowledgeService

	// Ingestion runs cycles and reports sources. Optional; the ingestion
	// tools report ErrIngestionUnavailable without it.
	Ingestion driving.IngestionCoordinator

	// SearchLimit is the configured default result count. It only sizes
	// source-filtered fetches; unfiltered searches leave the limit to Search.
	// Zero means domain.DefaultSearchLimit.
	SearchLimit int
}

func (p *Ports) searchLimit() int {
	if p.SearchLimit > 0 {
		return p.SearchLimit
	}
	return domain.DefaultSearchLimit
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Knowledge == nil {
		return ErrMissingKnowledgeService
	}
	return nil
}
