package driving

import (
	"context"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search runs a keyword, semantic or hybrid query against one table.
	// A query with no matches returns an empty slice, not an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
