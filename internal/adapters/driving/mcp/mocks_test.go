package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error

	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

// mockKnowledgeService is a mock implementation of driving.KnowledgeService.
type mockKnowledgeService struct {
	records []domain.KnowledgeRecord
	record  *domain.KnowledgeRecord
	result  domain.WriteResult
	err     error

	lastType     domain.KnowledgeType
	lastQuery    string
	lastDecision driving.DecisionInput
	lastError    driving.ErrorSolutionInput
	lastInsight  driving.InsightInput
}

func (m *mockKnowledgeService) Write(_ context.Context, _ domain.KnowledgeDraft) (domain.WriteResult, error) {
	return m.result, m.err
}

func (m *mockKnowledgeService) SaveDecision(
	_ context.Context, in driving.DecisionInput,
) (domain.WriteResult, error) {
	m.lastDecision = in
	return m.result, m.err
}

func (m *mockKnowledgeService) SaveErrorSolution(
	_ context.Context, in driving.ErrorSolutionInput,
) (domain.WriteResult, error) {
	m.lastError = in
	return m.result, m.err
}

func (m *mockKnowledgeService) SaveInsight(
	_ context.Context, in driving.InsightInput,
) (domain.WriteResult, error) {
	m.lastInsight = in
	return m.result, m.err
}

func (m *mockKnowledgeService) List(
	_ context.Context, kt domain.KnowledgeType, query string,
) ([]domain.KnowledgeRecord, error) {
	m.lastType = kt
	m.lastQuery = query
	return m.records, m.err
}

func (m *mockKnowledgeService) Get(_ context.Context, _ string) (*domain.KnowledgeRecord, error) {
	return m.record, m.err
}

// mockCoordinator is a mock implementation of driving.IngestionCoordinator.
type mockCoordinator struct {
	result   domain.CycleResult
	statuses []domain.SourceStatus
	err      error

	fullCalls int
	runCalls  int
}

func (m *mockCoordinator) RunCycle(_ context.Context) (domain.CycleResult, error) {
	m.runCalls++
	return m.result, m.err
}

func (m *mockCoordinator) FullSync(_ context.Context) (domain.CycleResult, error) {
	m.fullCalls++
	return m.result, m.err
}

func (m *mockCoordinator) Trigger(_ context.Context) {}

func (m *mockCoordinator) WaitIdle(_ context.Context) error { return nil }

func (m *mockCoordinator) WatchPaths() []string { return nil }

func (m *mockCoordinator) Sources(_ context.Context) ([]domain.SourceStatus, error) {
	return m.statuses, m.err
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	s, err := NewServer(ports, "test")
	require.NoError(t, err)
	return s
}
