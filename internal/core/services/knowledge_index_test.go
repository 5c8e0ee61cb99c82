package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

func knowledgeHit(t *testing.T, id string, kt domain.KnowledgeType, supersededBy string, score float64) domain.ScoredRecord {
	t.Helper()
	meta, err := json.Marshal(knowledgeMetadata{Type: kt, SupersededBy: supersededBy})
	require.NoError(t, err)
	return domain.ScoredRecord{Record: domain.Record{ID: id, Metadata: string(meta)}, Score: score}
}

func TestKnowledgeIndex_Index(t *testing.T) {
	store := newMockRecordStore()
	idx := NewKnowledgeIndex(newMockEmbedding(), store)

	rec := domain.KnowledgeRecord{
		ID:        "k1",
		Type:      domain.KnowledgeDecision,
		Title:     "Use X",
		Body:      "because",
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, idx.Index(context.Background(), rec))

	stored, ok := store.record(domain.TableKnowledge, "k1")
	require.True(t, ok)
	assert.Equal(t, "Use X\nbecause", stored.Text)

	var meta knowledgeMetadata
	require.NoError(t, json.Unmarshal([]byte(stored.Metadata), &meta))
	assert.Equal(t, domain.KnowledgeDecision, meta.Type)
	assert.Equal(t, "2025-01-02T03:04:05.000Z", meta.CreatedAt)
}

func TestKnowledgeIndex_FindSimilar(t *testing.T) {
	store := newMockRecordStore()
	store.vectorHits = []domain.ScoredRecord{
		knowledgeHit(t, "other-type", domain.KnowledgeInsight, "", 0.99),
		knowledgeHit(t, "retired", domain.KnowledgeDecision, "newer", 0.98),
		knowledgeHit(t, "match", domain.KnowledgeDecision, "", 1.0000001),
		knowledgeHit(t, "worse", domain.KnowledgeDecision, "", 0.5),
	}
	idx := NewKnowledgeIndex(newMockEmbedding(), store)

	match, err := idx.FindSimilar(context.Background(), domain.KnowledgeDecision, "Use X")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "match", match.ID)
	assert.InDelta(t, 1.0, match.Similarity, 1e-12, "similarity is clamped to [0,1]")
}

func TestKnowledgeIndex_FindSimilar_NoCandidates(t *testing.T) {
	store := newMockRecordStore()
	store.vectorHits = []domain.ScoredRecord{knowledgeHit(t, "x", domain.KnowledgeGotcha, "", 0.9)}
	idx := NewKnowledgeIndex(newMockEmbedding(), store)

	match, err := idx.FindSimilar(context.Background(), domain.KnowledgeDecision, "Use X")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestKnowledgeIndex_FindSimilar_WidensPastOtherTypes(t *testing.T) {
	store := newMockRecordStore()
	for i := range similarityCandidates + 5 {
		kt := domain.KnowledgeInsight
		supersededBy := ""
		if i%2 == 0 {
			kt, supersededBy = domain.KnowledgeDecision, "newer"
		}
		store.vectorHits = append(store.vectorHits,
			knowledgeHit(t, fmt.Sprintf("noise-%d", i), kt, supersededBy, 0.999-float64(i)*0.001))
	}
	store.vectorHits = append(store.vectorHits, knowledgeHit(t, "match", domain.KnowledgeDecision, "", 0.97))
	idx := NewKnowledgeIndex(newMockEmbedding(), store)

	match, err := idx.FindSimilar(context.Background(), domain.KnowledgeDecision, "Use X")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "match", match.ID)
	assert.InDelta(t, 0.97, match.Similarity, 1e-12)
	assert.Equal(t, 2*similarityCandidates, store.lastLimits["vector"])
}

func TestKnowledgeIndex_FindSimilar_StopsWhenTableExhausted(t *testing.T) {
	store := newMockRecordStore()
	for i := range similarityCandidates * 2 {
		store.vectorHits = append(store.vectorHits,
			knowledgeHit(t, fmt.Sprintf("insight-%d", i), domain.KnowledgeInsight, "", 0.9))
	}
	idx := NewKnowledgeIndex(newMockEmbedding(), store)

	match, err := idx.FindSimilar(context.Background(), domain.KnowledgeDecision, "Use X")
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.Equal(t, 4*similarityCandidates, store.lastLimits["vector"])
}

func TestClamp01(t *testing.T) {
	assert.InDelta(t, 0.0, clamp01(-0.3), 1e-12)
	assert.InDelta(t, 0.4, clamp01(0.4), 1e-12)
	assert.InDelta(t, 1.0, clamp01(1.2), 1e-12)
}
