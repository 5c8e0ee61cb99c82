package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// fusedHit accumulates one identifier's RRF score across ranked lists.
type fusedHit struct {
	record      domain.Record
	nativeScore float64
	score       float64
}

// SearchService answers keyword, semantic and hybrid queries over a record store.
type SearchService struct {
	recordStore      driven.RecordStore
	embeddingService driven.EmbeddingService

	defaultMode  domain.SearchMode
	defaultLimit int
}

// NewSearchService creates a new search service.
// The embeddingService parameter is optional (can be nil); without it,
// hybrid queries degrade to keyword search and semantic queries fail.
func NewSearchService(recordStore driven.RecordStore, embeddingService driven.EmbeddingService) *SearchService {
	return &SearchService{
		recordStore:      recordStore,
		embeddingService: embeddingService,
		defaultMode:      domain.SearchModeHybrid,
		defaultLimit:     domain.DefaultSearchLimit,
	}
}

// SetDefaults sets the mode and limit used when a query leaves them unset.
func (s *SearchService) SetDefaults(mode domain.SearchMode, limit int) {
	if mode.IsValid() {
		s.defaultMode = mode
	}
	if limit > 0 {
		s.defaultLimit = limit
	}
}

// Search runs a query against one table.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	if s.recordStore == nil {
		return nil, domain.ErrStoreUnavailable
	}

	mode := opts.Mode
	if mode == "" {
		mode = s.defaultMode
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSearchMode, mode)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	table := opts.Table
	if table == "" {
		table = domain.TableContext
	}

	logger.Info("Search mode: %s, table: %s, limit: %d", mode.Description(), table, limit)

	var (
		results []domain.SearchResult
		err     error
	)

	switch mode {
	case domain.SearchModeKeyword:
		var hits []domain.ScoredRecord
		hits, err = s.keywordSearch(ctx, table, query, limit)
		results = toResults(hits)

	case domain.SearchModeSemantic:
		var hits []domain.ScoredRecord
		hits, err = s.vectorSearch(ctx, table, query, limit)
		results = toResults(hits)

	default:
		results, err = s.hybridSearch(ctx, table, query, limit)
	}

	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}

	if len(results) > limit {
		results = results[:limit]
	}
	logger.Info("Final results: %d", len(results))

	return results, nil
}

func (s *SearchService) keywordSearch(
	ctx context.Context, table, query string, limit int,
) ([]domain.ScoredRecord, error) {
	logger.Debug("Keyword search: query=%q, limit=%d", query, limit)

	hits, err := s.recordStore.KeywordSearch(ctx, table, query, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	logger.Debug("Keyword search: %d hits", len(hits))
	return hits, nil
}

func (s *SearchService) vectorSearch(
	ctx context.Context, table, query string, limit int,
) ([]domain.ScoredRecord, error) {
	if s.embeddingService == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Debug("Vector search: query=%q, limit=%d", query, limit)

	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}

	hits, err := s.recordStore.VectorSearch(ctx, table, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	logger.Debug("Vector search: %d hits", len(hits))
	return hits, nil
}

// hybridSearch runs vector and keyword search concurrently, each
// over-fetching 2×limit candidates, and fuses the rankings with RRF.
func (s *SearchService) hybridSearch(
	ctx context.Context, table, query string, limit int,
) ([]domain.SearchResult, error) {
	internalLimit := limit * 2
	logger.Debug("Hybrid search: internal limit %d", internalLimit)

	var keywordHits, vectorHits []domain.ScoredRecord
	var keywordErr, vectorErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		keywordHits, keywordErr = s.keywordSearch(ctx, table, query, internalLimit)
	}()

	go func() {
		defer wg.Done()
		vectorHits, vectorErr = s.vectorSearch(ctx, table, query, internalLimit)
	}()

	wg.Wait()

	// Degrade to whichever list succeeded.
	if keywordErr != nil && vectorErr != nil {
		return nil, fmt.Errorf("hybrid search: keyword=%w, vector=%w", keywordErr, vectorErr)
	}
	if keywordErr != nil {
		logger.Warn("Hybrid search: keyword search failed, using vector results only: %v", keywordErr)
		return toResults(vectorHits), nil
	}
	if vectorErr != nil {
		logger.Warn("Hybrid search: vector search failed, using keyword results only: %v", vectorErr)
		return toResults(keywordHits), nil
	}

	logger.Debug("Hybrid search: merging %d vector + %d keyword results with RRF",
		len(vectorHits), len(keywordHits))

	return reciprocalRankFusion(domain.RRFK, vectorHits, keywordHits), nil
}

// reciprocalRankFusion merges ranked lists. An identifier at zero-based rank
// r in a list contributes 1/(k+r+1); contributions are summed across lists.
// The payload for each identifier comes from the list that reported the
// higher native score. Ties in fused score keep first-seen order.
func reciprocalRankFusion(k int, lists ...[]domain.ScoredRecord) []domain.SearchResult {
	hits := make(map[string]*fusedHit)
	var order []string

	for _, list := range lists {
		for rank, hit := range list {
			contribution := 1.0 / float64(k+rank+1)

			fh, ok := hits[hit.ID]
			if !ok {
				fh = &fusedHit{record: hit.Record, nativeScore: hit.Score}
				hits[hit.ID] = fh
				order = append(order, hit.ID)
			} else if hit.Score > fh.nativeScore {
				fh.record = hit.Record
				fh.nativeScore = hit.Score
			}
			fh.score += contribution
		}
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, id := range order {
		fh := hits[id]
		results = append(results, domain.SearchResult{
			ID:       id,
			Text:     fh.record.Text,
			Metadata: fh.record.Metadata,
			Score:    fh.score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

func toResults(hits []domain.ScoredRecord) []domain.SearchResult {
	results := make([]domain.SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = domain.SearchResult{
			ID:       hit.ID,
			Text:     hit.Text,
			Metadata: hit.Metadata,
			Score:    hit.Score,
		}
	}
	return results
}
