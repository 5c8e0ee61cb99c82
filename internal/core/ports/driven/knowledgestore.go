package driven

import (
	"context"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// KnowledgeStore persists knowledge records as individually addressable
// documents grouped by type.
type KnowledgeStore interface {
	// Save writes a record, replacing any record with the same identifier.
	// The write must be durable when Save returns.
	Save(ctx context.Context, record domain.KnowledgeRecord) error

	// Get retrieves a record by identifier.
	// Returns domain.ErrNotFound if no record exists.
	Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error)

	// ListByType returns records of one type, newest first.
	ListByType(ctx context.Context, kt domain.KnowledgeType) ([]domain.KnowledgeRecord, error)

	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]domain.KnowledgeRecord, error)

	// Supersede sets superseded_by on oldID.
	// Returns domain.ErrNotFound if oldID does not exist.
	Supersede(ctx context.Context, oldID, newID string) error
}
