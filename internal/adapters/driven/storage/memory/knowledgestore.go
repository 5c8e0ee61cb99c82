package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore.
type KnowledgeStore struct {
	mu      sync.RWMutex
	records map[string]domain.KnowledgeRecord
}

// NewKnowledgeStore creates a new in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		records: make(map[string]domain.KnowledgeRecord),
	}
}

// Save stores or replaces a record.
func (s *KnowledgeStore) Save(_ context.Context, rec domain.KnowledgeRecord) error {
	if rec.ID == "" || !rec.Type.IsValid() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = clone(rec)
	return nil
}

// Get retrieves a record by identifier.
func (s *KnowledgeStore) Get(_ context.Context, id string) (*domain.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec = clone(rec)
	return &rec, nil
}

// ListByType returns records of one type, newest first.
func (s *KnowledgeStore) ListByType(_ context.Context, kt domain.KnowledgeType) ([]domain.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.KnowledgeRecord{}
	for _, rec := range s.records {
		if rec.Type == kt {
			result = append(result, clone(rec))
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// ListAll returns every record, newest first.
func (s *KnowledgeStore) ListAll(_ context.Context) ([]domain.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.KnowledgeRecord, 0, len(s.records))
	for _, rec := range s.records {
		result = append(result, clone(rec))
	}
	sortNewestFirst(result)
	return result, nil
}

// Supersede marks oldID as replaced by newID.
func (s *KnowledgeStore) Supersede(_ context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[oldID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.SupersededBy = newID
	s.records[oldID] = rec
	return nil
}

func sortNewestFirst(records []domain.KnowledgeRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

func clone(rec domain.KnowledgeRecord) domain.KnowledgeRecord {
	rec.ReferencedFiles = slices.Clone(rec.ReferencedFiles)
	rec.DomainTags = slices.Clone(rec.DomainTags)
	if rec.Metadata != nil {
		meta := make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			meta[k] = v
		}
		rec.Metadata = meta
	}
	return rec
}
