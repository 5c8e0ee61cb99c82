package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

// Ensure KnowledgeIndex implements the interface.
var _ driven.SimilarityLookup = (*KnowledgeIndex)(nil)

// similarityCandidates is the first window of nearest neighbours scanned
// for a record of the requested type.
const similarityCandidates = 20

// knowledgeMetadata is the JSON stored alongside knowledge records in the
// knowledge table.
type knowledgeMetadata struct {
	Type         domain.KnowledgeType `json:"type"`
	Title        string               `json:"title"`
	CreatedAt    string               `json:"created_at"`
	SourceTool   string               `json:"source_tool"`
	Supersedes   string               `json:"supersedes,omitempty"`
	SupersededBy string               `json:"superseded_by,omitempty"`
	DomainTags   []string             `json:"domain_tags,omitempty"`
}

// KnowledgeIndex embeds knowledge records into the knowledge table of a
// record store and answers similarity lookups from it.
type KnowledgeIndex struct {
	embeddingService driven.EmbeddingService
	recordStore      driven.RecordStore
}

// NewKnowledgeIndex creates a knowledge index.
func NewKnowledgeIndex(embeddingService driven.EmbeddingService, recordStore driven.RecordStore) *KnowledgeIndex {
	return &KnowledgeIndex{
		embeddingService: embeddingService,
		recordStore:      recordStore,
	}
}

// Index embeds and upserts a knowledge record, replacing any earlier copy.
func (x *KnowledgeIndex) Index(ctx context.Context, rec domain.KnowledgeRecord) error {
	text := rec.CandidateText()

	vector, err := x.embeddingService.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed knowledge %s: %w", rec.ID, err)
	}

	meta, err := json.Marshal(knowledgeMetadata{
		Type:         rec.Type,
		Title:        rec.Title,
		CreatedAt:    domain.FormatTimestamp(rec.CreatedAt),
		SourceTool:   rec.SourceTool,
		Supersedes:   rec.Supersedes,
		SupersededBy: rec.SupersededBy,
		DomainTags:   rec.DomainTags,
	})
	if err != nil {
		return fmt.Errorf("marshal knowledge metadata: %w", err)
	}

	record := domain.Record{
		ID:       rec.ID,
		Text:     text,
		Vector:   vector,
		Metadata: string(meta),
	}
	if err := x.recordStore.Upsert(ctx, domain.TableKnowledge, []domain.Record{record}); err != nil {
		return fmt.Errorf("index knowledge %s: %w", rec.ID, err)
	}
	return nil
}

// FindSimilar returns the closest active record of the given type, with
// cosine similarity clamped to [0,1], or nil if there is none.
func (x *KnowledgeIndex) FindSimilar(
	ctx context.Context, kt domain.KnowledgeType, candidateText string,
) (*domain.SimilarityMatch, error) {
	vector, err := x.embeddingService.Embed(ctx, candidateText)
	if err != nil {
		return nil, fmt.Errorf("embed candidate: %w", err)
	}

	// Other types and superseded records share the table, so the window
	// doubles until a candidate of the requested type turns up or the
	// table runs out.
	scanned := 0
	for limit := similarityCandidates; ; limit *= 2 {
		hits, err := x.recordStore.VectorSearch(ctx, domain.TableKnowledge, vector, limit)
		if err != nil {
			return nil, fmt.Errorf("search knowledge: %w", err)
		}

		for _, hit := range hits[min(scanned, len(hits)):] {
			var meta knowledgeMetadata
			if err := json.Unmarshal([]byte(hit.Metadata), &meta); err != nil {
				continue
			}
			if meta.Type != kt || meta.SupersededBy != "" {
				continue
			}
			return &domain.SimilarityMatch{ID: hit.ID, Similarity: clamp01(hit.Score)}, nil
		}

		if len(hits) < limit {
			return nil, nil
		}
		scanned = len(hits)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
