package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

// --- Mock implementations ---

var (
	_ driven.SourceAdapter    = (*mockSource)(nil)
	_ driven.EmbeddingService = (*mockEmbedding)(nil)
	_ driven.RecordStore      = (*mockRecordStore)(nil)
	_ driven.KnowledgeStore   = (*mockKnowledgeStore)(nil)
	_ driven.SimilarityLookup = (*mockLookup)(nil)
	_ driven.ChangeWatcher    = (*mockWatcher)(nil)
)

// mockSource implements driven.SourceAdapter over an in-memory item list.
type mockSource struct {
	name      string
	available bool
	paths     []string

	mu         sync.Mutex
	items      []domain.Item
	checkpoint *domain.Checkpoint
	saves      int

	extractErr error
	loadErr    error
	saveErr    error

	// onExtract runs at the start of every extraction.
	onExtract    func()
	extractCalls atomic.Int32
}

func newMockSource(name string, items ...domain.Item) *mockSource {
	for i := range items {
		items[i].Source = name
	}
	return &mockSource{name: name, available: true, items: items}
}

func (m *mockSource) Name() string                { return m.name }
func (m *mockSource) Detect(context.Context) bool { return m.available }
func (m *mockSource) StorePaths() []string        { return m.paths }

func (m *mockSource) ExtractSince(_ context.Context, cp *domain.Checkpoint) driven.ItemSeq {
	return m.extract(cp)
}

func (m *mockSource) ExtractAll(_ context.Context) driven.ItemSeq {
	return m.extract(nil)
}

func (m *mockSource) extract(cp *domain.Checkpoint) driven.ItemSeq {
	return func(yield func(domain.Item, error) bool) {
		m.extractCalls.Add(1)
		if m.onExtract != nil {
			m.onExtract()
		}
		if m.extractErr != nil {
			yield(domain.Item{}, m.extractErr)
			return
		}

		m.mu.Lock()
		items := append([]domain.Item(nil), m.items...)
		m.mu.Unlock()

		for _, item := range items {
			if cp != nil && !item.Timestamp.After(cp.LastTimestamp) {
				continue
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

func (m *mockSource) LoadCheckpoint(context.Context) (*domain.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.checkpoint == nil {
		return nil, nil
	}
	cp := *m.checkpoint
	return &cp, nil
}

func (m *mockSource) SaveCheckpoint(_ context.Context, cp domain.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.checkpoint = &cp
	m.saves++
	return nil
}

func (m *mockSource) saved() (*domain.Checkpoint, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpoint, m.saves
}

// mockEmbedding implements driven.EmbeddingService with fixed or per-text vectors.
type mockEmbedding struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	err      error
	batches  int
	block    chan struct{}
}

func newMockEmbedding() *mockEmbedding {
	return &mockEmbedding{vectors: make(map[string][]float32), fallback: []float32{1, 0, 0}}
}

func (m *mockEmbedding) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return m.fallback
}

func (m *mockEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int            { return len(m.fallback) }
func (m *mockEmbedding) ModelName() string          { return "mock" }
func (m *mockEmbedding) Ping(context.Context) error { return m.err }
func (m *mockEmbedding) Close() error               { return nil }

func (m *mockEmbedding) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// mockRecordStore implements driven.RecordStore with canned search hits
// and an in-memory upsert log.
type mockRecordStore struct {
	mu          sync.Mutex
	tables      map[string]map[string]domain.Record
	upsertCalls int
	upsertErr   error
	failTable   string

	keywordHits []domain.ScoredRecord
	vectorHits  []domain.ScoredRecord
	keywordErr  error
	vectorErr   error
	lastLimits  map[string]int
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{
		tables:     make(map[string]map[string]domain.Record),
		lastLimits: make(map[string]int),
	}
}

func (m *mockRecordStore) Upsert(_ context.Context, table string, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertErr != nil && (m.failTable == "" || m.failTable == table) {
		return m.upsertErr
	}
	if m.tables[table] == nil {
		m.tables[table] = make(map[string]domain.Record)
	}
	for _, r := range records {
		m.tables[table][r.ID] = r
	}
	return nil
}

func (m *mockRecordStore) VectorSearch(
	_ context.Context, _ string, _ []float32, limit int,
) ([]domain.ScoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimits["vector"] = limit
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	return truncate(m.vectorHits, limit), nil
}

func (m *mockRecordStore) KeywordSearch(
	_ context.Context, _ string, _ string, limit int,
) ([]domain.ScoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimits["keyword"] = limit
	if m.keywordErr != nil {
		return nil, m.keywordErr
	}
	return truncate(m.keywordHits, limit), nil
}

func (m *mockRecordStore) Count(_ context.Context, table string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table]), nil
}

func (m *mockRecordStore) Close() error { return nil }

func (m *mockRecordStore) record(table, id string) (domain.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tables[table][id]
	return r, ok
}

func truncate(hits []domain.ScoredRecord, limit int) []domain.ScoredRecord {
	if limit < len(hits) {
		return hits[:limit]
	}
	return hits
}

func hit(id string, score float64) domain.ScoredRecord {
	return domain.ScoredRecord{Record: domain.Record{ID: id, Text: "text " + id}, Score: score}
}

// mockKnowledgeStore implements driven.KnowledgeStore in memory.
type mockKnowledgeStore struct {
	mu           sync.Mutex
	records      map[string]domain.KnowledgeRecord
	saveErr      error
	getErr       error
	supersedeErr error
	order        []string
}

func newMockKnowledgeStore() *mockKnowledgeStore {
	return &mockKnowledgeStore{records: make(map[string]domain.KnowledgeRecord)}
}

func (m *mockKnowledgeStore) Save(_ context.Context, rec domain.KnowledgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[rec.ID] = rec
	m.order = append(m.order, "save:"+rec.ID)
	return nil
}

func (m *mockKnowledgeStore) Get(_ context.Context, id string) (*domain.KnowledgeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (m *mockKnowledgeStore) ListByType(_ context.Context, kt domain.KnowledgeType) ([]domain.KnowledgeRecord, error) {
	all, _ := m.ListAll(context.Background())
	out := []domain.KnowledgeRecord{}
	for _, r := range all {
		if r.Type == kt {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockKnowledgeStore) ListAll(context.Context) ([]domain.KnowledgeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.KnowledgeRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockKnowledgeStore) Supersede(_ context.Context, oldID, newID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.supersedeErr != nil {
		return m.supersedeErr
	}
	rec, ok := m.records[oldID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.SupersededBy = newID
	m.records[oldID] = rec
	m.order = append(m.order, "supersede:"+oldID)
	return nil
}

// mockLookup implements driven.SimilarityLookup with a scripted answer.
type mockLookup struct {
	mu    sync.Mutex
	match *domain.SimilarityMatch
	err   error
	calls int
}

func (m *mockLookup) FindSimilar(context.Context, domain.KnowledgeType, string) (*domain.SimilarityMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.match, m.err
}

func (m *mockLookup) set(match *domain.SimilarityMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.match = match
}

// mockWatcher implements driven.ChangeWatcher and lets tests fire changes.
type mockWatcher struct {
	mu       sync.Mutex
	paths    []string
	onChange func()
	starts   int
	stops    int
	startErr error
}

func (m *mockWatcher) Start(_ context.Context, paths []string, onChange func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.paths = paths
	m.onChange = onChange
	m.starts++
	return nil
}

func (m *mockWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.onChange = nil
	return nil
}

func (m *mockWatcher) fire() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func ts(sec int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, sec, 0, time.UTC)
}

func item(sec int, content string) domain.Item {
	return domain.Item{
		SessionID: "s1",
		Timestamp: ts(sec),
		Role:      domain.RoleUser,
		Content:   content,
	}
}
