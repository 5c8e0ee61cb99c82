package driven

import (
	"context"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// CheckpointStore persists one checkpoint per source, keyed by source name.
type CheckpointStore interface {
	// Save stores or replaces the checkpoint for checkpoint.Source.
	Save(ctx context.Context, checkpoint domain.Checkpoint) error

	// Get retrieves the checkpoint for a source.
	// Returns domain.ErrNotFound if none has been saved.
	Get(ctx context.Context, source string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint for a source.
	Delete(ctx context.Context, source string) error
}
