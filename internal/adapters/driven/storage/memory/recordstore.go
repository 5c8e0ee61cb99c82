package memory

import (
	"context"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
// Vector search is brute-force cosine; keyword search scores by the number
// of query terms a record contains.
type RecordStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]domain.Record
	order  map[string][]string
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		tables: make(map[string]map[string]domain.Record),
		order:  make(map[string][]string),
	}
}

// Upsert inserts or replaces records by identifier.
func (s *RecordStore) Upsert(_ context.Context, table string, records []domain.Record) error {
	if table == "" {
		return domain.ErrInvalidInput
	}
	for _, rec := range records {
		if rec.ID == "" {
			return domain.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]domain.Record)
		s.tables[table] = rows
	}
	for _, rec := range records {
		if _, exists := rows[rec.ID]; !exists {
			s.order[table] = append(s.order[table], rec.ID)
		}
		rec.Vector = slices.Clone(rec.Vector)
		rows[rec.ID] = rec
	}
	return nil
}

// VectorSearch returns the records nearest to vector by cosine similarity.
func (s *RecordStore) VectorSearch(
	_ context.Context,
	table string,
	vector []float32,
	limit int,
) ([]domain.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := []domain.ScoredRecord{}
	if len(vector) == 0 || limit <= 0 {
		return hits, nil
	}
	for _, id := range s.order[table] {
		rec := s.tables[table][id]
		if len(rec.Vector) != len(vector) {
			continue
		}
		hits = append(hits, domain.ScoredRecord{Record: rec, Score: cosine(vector, rec.Vector)})
	}
	return topN(hits, limit), nil
}

// KeywordSearch returns records containing at least one query term.
func (s *RecordStore) KeywordSearch(
	_ context.Context,
	table string,
	query string,
	limit int,
) ([]domain.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := []domain.ScoredRecord{}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || limit <= 0 {
		return hits, nil
	}
	for _, id := range s.order[table] {
		rec := s.tables[table][id]
		text := strings.ToLower(rec.Text)
		matched := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched++
			}
		}
		if matched > 0 {
			hits = append(hits, domain.ScoredRecord{Record: rec, Score: float64(matched)})
		}
	}
	return topN(hits, limit), nil
}

// Count returns the number of records in a table.
func (s *RecordStore) Count(_ context.Context, table string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table]), nil
}

// Close is a no-op.
func (s *RecordStore) Close() error {
	return nil
}

func topN(hits []domain.ScoredRecord, limit int) []domain.ScoredRecord {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
