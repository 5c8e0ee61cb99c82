package driven

import (
	"context"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// SimilarityLookup finds the closest existing knowledge record of a type.
type SimilarityLookup interface {
	// FindSimilar returns the best match with a similarity in [0,1],
	// or nil when nothing comparable exists.
	FindSimilar(ctx context.Context, kt domain.KnowledgeType, candidateText string) (*domain.SimilarityMatch, error)
}
