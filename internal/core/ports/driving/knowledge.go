package driving

import (
	"context"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// DecisionInput describes an architectural or technical decision.
type DecisionInput struct {
	Title                  string
	Rationale              string
	Context                string
	AlternativesConsidered []string
	ReferencedFiles        []string
	SourceSession          string
}

// ErrorSolutionInput pairs an error with the fix that resolved it.
type ErrorSolutionInput struct {
	Error           string
	Solution        string
	Context         string
	ReferencedFiles []string
	SourceSession   string
}

// InsightInput records a project insight.
type InsightInput struct {
	Insight         string
	Context         string
	ReferencedFiles []string
	SourceSession   string
}

// KnowledgeService writes and reads knowledge records.
type KnowledgeService interface {
	// Write runs the dedup and supersession pipeline for one draft.
	Write(ctx context.Context, draft domain.KnowledgeDraft) (domain.WriteResult, error)

	SaveDecision(ctx context.Context, in DecisionInput) (domain.WriteResult, error)
	SaveErrorSolution(ctx context.Context, in ErrorSolutionInput) (domain.WriteResult, error)
	SaveInsight(ctx context.Context, in InsightInput) (domain.WriteResult, error)

	// List returns records of one type (or every type when kt is empty),
	// newest first, optionally filtered by a case-insensitive query.
	List(ctx context.Context, kt domain.KnowledgeType, query string) ([]domain.KnowledgeRecord, error)

	// Get returns one record by identifier.
	Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error)
}
