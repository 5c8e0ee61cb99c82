package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

func contextHit(id, tool, text string, score float64) domain.SearchResult {
	return domain.SearchResult{
		ID:       id,
		Text:     text,
		Score:    score,
		Metadata: `{"source_tool":"` + tool + `","source_session":"s1","role":"user","timestamp":"2025-05-01T09:00:00.000Z"}`,
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("unpacks metadata and renders markdown", func(t *testing.T) {
		search := &mockSearchService{results: []domain.SearchResult{
			contextHit("r1", "claude-code", "use busy_timeout", 0.0323),
		}}
		server := newTestServer(t, &Ports{Search: search, Knowledge: &mockKnowledgeService{}})

		res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "sqlite lock", Mode: "Keyword"})
		require.NoError(t, err)

		assert.Equal(t, "sqlite lock", search.lastQuery)
		assert.Equal(t, domain.SearchModeKeyword, search.lastOpts.Mode)
		assert.Zero(t, search.lastOpts.Limit)

		require.Equal(t, 1, out.Count)
		hit := out.Results[0]
		assert.Equal(t, "r1", hit.ID)
		assert.Equal(t, "claude-code", hit.SourceTool)
		assert.Equal(t, "s1", hit.Session)
		assert.Equal(t, "user", hit.Role)

		text := resultText(t, res)
		assert.Contains(t, text, `## 1 results for "sqlite lock"`)
		assert.Contains(t, text, "### 1. user message")
		assert.Contains(t, text, "**Source:** claude-code | **Score:** 0.032")
		assert.Contains(t, text, "use busy_timeout")
	})

	t.Run("json format returns structured output only", func(t *testing.T) {
		search := &mockSearchService{results: []domain.SearchResult{contextHit("r1", "codex", "x", 1)}}
		server := newTestServer(t, &Ports{Search: search, Knowledge: &mockKnowledgeService{}})

		res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "x", Format: "json"})
		require.NoError(t, err)
		assert.Nil(t, res)
		assert.Equal(t, 1, out.Count)
	})

	t.Run("source filter over-fetches and trims", func(t *testing.T) {
		search := &mockSearchService{results: []domain.SearchResult{
			contextHit("a", "cursor", "one", 0.9),
			contextHit("b", "codex", "two", 0.8),
			contextHit("c", "cursor", "three", 0.7),
			contextHit("d", "cursor", "four", 0.6),
		}}
		server := newTestServer(t, &Ports{Search: search, Knowledge: &mockKnowledgeService{}})

		_, out, err := server.handleSearch(ctx, nil, SearchInput{
			Query:        "q",
			Limit:        2,
			SourceFilter: []string{"cursor"},
			Format:       "json",
		})
		require.NoError(t, err)
		assert.Equal(t, 2*filterOverfetch, search.lastOpts.Limit)
		require.Equal(t, 2, out.Count)
		assert.Equal(t, "a", out.Results[0].ID)
		assert.Equal(t, "c", out.Results[1].ID)
	})

	t.Run("omitted limit is left to the search service", func(t *testing.T) {
		search := &mockSearchService{results: []domain.SearchResult{
			contextHit("a", "cursor", "one", 0.9),
			contextHit("b", "codex", "two", 0.8),
		}}
		server := newTestServer(t, &Ports{Search: search, Knowledge: &mockKnowledgeService{}})

		_, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "q", Format: "json"})
		require.NoError(t, err)
		assert.Equal(t, 0, search.lastOpts.Limit)
		assert.Equal(t, 2, out.Count)
	})

	t.Run("source filter without limit uses the configured default", func(t *testing.T) {
		search := &mockSearchService{results: []domain.SearchResult{
			contextHit("a", "cursor", "one", 0.9),
			contextHit("b", "cursor", "two", 0.8),
			contextHit("c", "cursor", "three", 0.7),
			contextHit("d", "cursor", "four", 0.6),
		}}
		server := newTestServer(t, &Ports{Search: search, Knowledge: &mockKnowledgeService{}, SearchLimit: 3})

		_, out, err := server.handleSearch(ctx, nil, SearchInput{
			Query:        "q",
			SourceFilter: []string{"cursor"},
			Format:       "json",
		})
		require.NoError(t, err)
		assert.Equal(t, 3*filterOverfetch, search.lastOpts.Limit)
		assert.Equal(t, 3, out.Count)
	})

	t.Run("knowledge hits use the title", func(t *testing.T) {
		search := &mockSearchService{results: []domain.SearchResult{{
			ID:       "k1",
			Text:     "Use WAL\nreaders never block",
			Metadata: `{"type":"decision","title":"Use WAL","created_at":"2025-05-02T00:00:00.000Z","source_tool":"claude-code"}`,
		}}}
		server := newTestServer(t, &Ports{Search: search, Knowledge: &mockKnowledgeService{}})

		res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "wal", Table: domain.TableKnowledge})
		require.NoError(t, err)
		assert.Equal(t, domain.TableKnowledge, search.lastOpts.Table)
		assert.Equal(t, "decision", out.Results[0].Type)
		assert.Equal(t, "2025-05-02T00:00:00.000Z", out.Results[0].Timestamp)
		assert.Contains(t, resultText(t, res), "### 1. Use WAL")
	})

	t.Run("no results", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}})

		res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "nothing"})
		require.NoError(t, err)
		assert.Zero(t, out.Count)
		assert.NotNil(t, out.Results)
		assert.Equal(t, `No results found for "nothing".`, resultText(t, res))
	})

	t.Run("unknown format", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "q", Format: "xml"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		search := &mockSearchService{err: errors.New("search failed")}
		server := newTestServer(t, &Ports{Search: search, Knowledge: &mockKnowledgeService{}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleProjectKnowledge(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("defaults to all types", func(t *testing.T) {
		knowledge := &mockKnowledgeService{records: []domain.KnowledgeRecord{{
			ID:         "k1",
			Type:       domain.KnowledgeGotcha,
			Title:      "Tests share HOME",
			Body:       "Set HOME per test.",
			CreatedAt:  created,
			SourceTool: "claude-code",
			DomainTags: []string{"testing"},
		}}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		res, out, err := server.handleProjectKnowledge(ctx, nil, KnowledgeListInput{Query: "home"})
		require.NoError(t, err)
		assert.Equal(t, domain.KnowledgeType("all"), knowledge.lastType)
		assert.Equal(t, "home", knowledge.lastQuery)
		assert.Equal(t, 1, out.Count)

		text := resultText(t, res)
		assert.Contains(t, text, "## 1 knowledge record(s)")
		assert.Contains(t, text, "### 1. Tests share HOME")
		assert.Contains(t, text, "- Type: gotcha")
		assert.Contains(t, text, "- Created: 2025-05-01T12:00:00.000Z")
		assert.Contains(t, text, "- Tags: testing")
		assert.Contains(t, text, "Set HOME per test.")
	})

	t.Run("empty result message", func(t *testing.T) {
		knowledge := &mockKnowledgeService{}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		res, out, err := server.handleProjectKnowledge(ctx, nil, KnowledgeListInput{Type: "Decision", Query: "wal"})
		require.NoError(t, err)
		assert.Equal(t, domain.KnowledgeDecision, knowledge.lastType)
		assert.NotNil(t, out.Records)
		assert.Equal(t, `No decision records found matching "wal".`, resultText(t, res))
	})

	t.Run("propagates invalid type", func(t *testing.T) {
		knowledge := &mockKnowledgeService{err: domain.ErrInvalidKnowledgeType}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		_, _, err := server.handleProjectKnowledge(ctx, nil, KnowledgeListInput{Type: "rumour"})
		assert.ErrorIs(t, err, domain.ErrInvalidKnowledgeType)
	})
}

func TestServer_handleGetKnowledge(t *testing.T) {
	ctx := context.Background()

	t.Run("renders the record", func(t *testing.T) {
		knowledge := &mockKnowledgeService{record: &domain.KnowledgeRecord{
			ID:           "k2",
			Type:         domain.KnowledgeDecision,
			Title:        "Use WAL",
			Body:         "Readers never block.",
			Supersedes:   "k1",
			SupersededBy: "k3",
		}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		res, rec, err := server.handleGetKnowledge(ctx, nil, GetKnowledgeInput{ID: "k2"})
		require.NoError(t, err)
		assert.Equal(t, "k2", rec.ID)

		text := resultText(t, res)
		assert.Contains(t, text, "## Use WAL")
		assert.Contains(t, text, "- Supersedes: k1")
		assert.Contains(t, text, "- Superseded by: k3")
	})

	t.Run("not found", func(t *testing.T) {
		knowledge := &mockKnowledgeService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		_, _, err := server.handleGetKnowledge(ctx, nil, GetKnowledgeInput{ID: "nope"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_SaveTools(t *testing.T) {
	ctx := context.Background()

	t.Run("decision", func(t *testing.T) {
		knowledge := &mockKnowledgeService{result: domain.WriteResult{Action: domain.WriteCreated, ID: "k1"}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		res, out, err := server.handleSaveDecision(ctx, nil, SaveDecisionInput{
			Title:                  "Use WAL",
			Rationale:              "Readers never block",
			AlternativesConsidered: []string{"rollback journal"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.WriteCreated, out.Action)
		assert.Equal(t, []string{"rollback journal"}, knowledge.lastDecision.AlternativesConsidered)
		assert.Equal(t, "Saved k1.", resultText(t, res))
	})

	t.Run("decision requires rationale", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}})

		_, _, err := server.handleSaveDecision(ctx, nil, SaveDecisionInput{Title: "Use WAL", Rationale: "  "})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "rationale is required")
	})

	t.Run("error solution superseding", func(t *testing.T) {
		knowledge := &mockKnowledgeService{result: domain.WriteResult{
			Action:     domain.WriteSuperseded,
			ID:         "k2",
			ReplacedID: "k1",
			Warnings:   []string{"link failed"},
		}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		res, _, err := server.handleSaveErrorSolution(ctx, nil, SaveErrorSolutionInput{
			Error:    "database is locked",
			Solution: "set busy_timeout",
		})
		require.NoError(t, err)
		assert.Equal(t, "database is locked", knowledge.lastError.Error)
		assert.Equal(t, "Saved k2, superseding k1.\nWarning: link failed", resultText(t, res))
	})

	t.Run("error solution requires error", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}})

		_, _, err := server.handleSaveErrorSolution(ctx, nil, SaveErrorSolutionInput{Solution: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("insight duplicate", func(t *testing.T) {
		knowledge := &mockKnowledgeService{result: domain.WriteResult{
			Action: domain.WriteDuplicateRejected,
			ID:     "k9",
		}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		res, out, err := server.handleSaveInsight(ctx, nil, SaveInsightInput{Insight: "HOME is shared", Context: "tests"})
		require.NoError(t, err)
		assert.Equal(t, domain.WriteDuplicateRejected, out.Action)
		assert.Equal(t, "tests", knowledge.lastInsight.Context)
		assert.Equal(t, "Not saved: k9 already records this.", resultText(t, res))
	})

	t.Run("service error", func(t *testing.T) {
		knowledge := &mockKnowledgeService{err: domain.ErrStoreUnavailable}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: knowledge})

		res, _, err := server.handleSaveInsight(ctx, nil, SaveInsightInput{Insight: "x"})
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.Nil(t, res)
	})
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("incremental by default", func(t *testing.T) {
		coord := &mockCoordinator{result: domain.CycleResult{
			RunID:            "run-1",
			SourcesProcessed: 1,
			ItemsProcessed:   3,
			PerSource:        []domain.SourceResult{{Source: "codex", Items: 3}},
			StartedAt:        started,
			EndedAt:          started.Add(1500 * time.Millisecond),
		}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}, Ingestion: coord})

		_, out, err := server.handleIngest(ctx, nil, IngestInput{})
		require.NoError(t, err)
		assert.Equal(t, 1, coord.runCalls)
		assert.Zero(t, coord.fullCalls)
		assert.Equal(t, 3, out.ItemsProcessed)
		assert.Equal(t, int64(1500), out.DurationMS)
		assert.Equal(t, []IngestSourceSummary{{Source: "codex", Items: 3}}, out.PerSource)
	})

	t.Run("full resync", func(t *testing.T) {
		coord := &mockCoordinator{result: domain.CycleResult{Full: true}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}, Ingestion: coord})

		_, out, err := server.handleIngest(ctx, nil, IngestInput{Full: true})
		require.NoError(t, err)
		assert.Equal(t, 1, coord.fullCalls)
		assert.True(t, out.Full)
	})

	t.Run("cycle error", func(t *testing.T) {
		coord := &mockCoordinator{err: domain.ErrStoreUnavailable}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}, Ingestion: coord})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{})
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("no coordinator", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{})
		assert.ErrorIs(t, err, ErrIngestionUnavailable)
	})
}

func TestServer_handleSources(t *testing.T) {
	ts := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	coord := &mockCoordinator{statuses: []domain.SourceStatus{
		{Name: "claude-code", Available: true, StorePaths: []string{"/h/.claude/projects"}, Checkpoint: &domain.Checkpoint{LastTimestamp: ts}},
		{Name: "cursor", Available: false},
	}}
	server := newTestServer(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}, Ingestion: coord})

	_, out, err := server.handleSources(context.Background(), nil, SourcesInput{})
	require.NoError(t, err)
	require.Len(t, out.Sources, 2)
	assert.Equal(t, "2025-05-01T09:00:00.000Z", out.Sources[0].LastTimestamp)
	assert.True(t, out.Sources[0].Available)
	assert.Empty(t, out.Sources[1].LastTimestamp)
}
