package driven

import (
	"context"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// RecordStore persists records in named tables and answers vector and
// keyword queries over them. Both search methods return hits ordered best
// first with a native score where higher is better.
type RecordStore interface {
	// Upsert inserts or replaces records by identifier in one call.
	Upsert(ctx context.Context, table string, records []domain.Record) error

	// VectorSearch returns the nearest records to vector by cosine similarity.
	VectorSearch(ctx context.Context, table string, vector []float32, limit int) ([]domain.ScoredRecord, error)

	// KeywordSearch returns full-text matches for query.
	KeywordSearch(ctx context.Context, table string, query string, limit int) ([]domain.ScoredRecord, error)

	// Count returns the number of records in a table.
	Count(ctx context.Context, table string) (int, error)

	// Close releases resources.
	Close() error
}
