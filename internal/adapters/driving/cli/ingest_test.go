package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

func resetIngestFlags() {
	ingestFull = false
	ingestDryRun = false
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest", ingestCmd.Use)
	assert.Equal(t, "Harvest conversation history from AI tools", ingestCmd.Short)
	assert.Contains(t, ingestCmd.Long, "--dry-run")
}

func TestIngestCmd_RunsCycle(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()

	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	ts.ingestion.result = domain.CycleResult{
		SourcesProcessed: 2,
		ItemsProcessed:   7,
		PerSource: []domain.SourceResult{
			{Source: "claude-code", Items: 5},
			{Source: "codex", Items: 2},
		},
		StartedAt: start,
		EndedAt:   start.Add(250 * time.Millisecond),
	}

	out, err := execute(t, "ingest")

	require.NoError(t, err)
	assert.Equal(t, 1, ts.ingestion.runCalls)
	assert.Zero(t, ts.ingestion.fullCalls)
	assert.False(t, ts.opts.InMemory)
	assert.Contains(t, out, "Running ingestion cycle...")
	assert.Contains(t, out, "claude-code  5 items")
	assert.Contains(t, out, "Ingested 7 items from 2 sources in 250ms.")
}

func TestIngestCmd_Full(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()

	out, err := execute(t, "ingest", "--full")

	require.NoError(t, err)
	assert.Equal(t, 1, ts.ingestion.fullCalls)
	assert.Contains(t, out, "Running full resync...")
}

func TestIngestCmd_DryRunUsesMemoryStores(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()
	ts.ingestion.result = domain.CycleResult{ItemsProcessed: 3, SourcesProcessed: 1}

	out, err := execute(t, "ingest", "--dry-run")

	require.NoError(t, err)
	assert.True(t, ts.opts.InMemory)
	assert.Contains(t, out, "Would ingest 3 items from 1 sources")
}

func TestIngestCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()
	ts.ingestion.err = domain.ErrStoreUnavailable

	_, err := execute(t, "ingest")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "ingest failed")
	assert.Equal(t, 1, ts.closed, "services are released even when the command fails")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupNoServices()
	defer cleanup()

	_, err := execute(t, "ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}
