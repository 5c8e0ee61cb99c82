package claudecode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

const transcript = `{"type":"human","content":"How do I fix the build?","timestamp":"2025-01-01T10:00:00Z"}
{"type":"assistant","message":{"role":"assistant","model":"claude-sonnet","content":[{"type":"text","text":"Let me look."},{"type":"tool_use","name":"Read","input":{"file_path":"/repo/main.go"}}]},"timestamp":"2025-01-01T10:00:05Z"}
{"type":"user","message":{"role":"user","content":[{"type":"tool_result","content":"package main"}]},"timestamp":"2025-01-01T10:00:06Z"}
{"type":"summary","summary":"Build fix"}
not json at all
{"type":"assistant","content":"Done, the import was missing.","timestamp":"2025-01-01T10:01:00Z","costUsd":0.02}
`

func setup(t *testing.T) (string, *Source) {
	t.Helper()
	dir := t.TempDir()
	project := filepath.Join(dir, "-repo")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "sess-1.jsonl"), []byte(transcript), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "notes.md"), []byte("# ignored"), 0o644))
	return dir, New(dir, memory.NewCheckpointStore())
}

func collect(t *testing.T, seq driven.ItemSeq) []domain.Item {
	t.Helper()
	var items []domain.Item
	for item, err := range seq {
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func TestSource_Basics(t *testing.T) {
	dir, src := setup(t)

	assert.Equal(t, "claude-code", src.Name())
	assert.True(t, src.Detect(context.Background()))
	assert.Equal(t, []string{dir}, src.StorePaths())

	missing := New(filepath.Join(dir, "nope"), nil)
	assert.False(t, missing.Detect(context.Background()))
	assert.Empty(t, collect(t, missing.ExtractAll(context.Background())))
}

func TestSource_ExtractAll(t *testing.T) {
	_, src := setup(t)

	items := collect(t, src.ExtractAll(context.Background()))
	require.Len(t, items, 4)

	assert.Equal(t, domain.RoleUser, items[0].Role)
	assert.Equal(t, "How do I fix the build?", items[0].Content)
	assert.Equal(t, "sess-1", items[0].SessionID)
	assert.Equal(t, "-repo", items[0].Metadata.Extra["project"])

	assert.Equal(t, domain.RoleAssistant, items[1].Role)
	assert.Equal(t, "Let me look.\n[tool: Read] /repo/main.go", items[1].Content)
	assert.Equal(t, []string{"/repo/main.go"}, items[1].Metadata.ReferencedFiles)
	assert.Equal(t, "Read", items[1].Metadata.Extra["tool_calls"])
	assert.Equal(t, "claude-sonnet", items[1].Metadata.Extra["model"])

	assert.Equal(t, domain.RoleTool, items[2].Role, "tool-result-only message")
	assert.Equal(t, "package main", items[2].Content)

	assert.Equal(t, "0.02", items[3].Metadata.Extra["cost_usd"])

	for i, item := range items {
		assert.Equal(t, "claude-code", item.Source)
		assert.Equal(t, i, item.Metadata.MessageIndex)
		assert.Positive(t, item.Metadata.TokenEstimate)
		assert.False(t, item.Timestamp.IsZero())
	}
}

func TestSource_ExtractSince(t *testing.T) {
	_, src := setup(t)
	cp := &domain.Checkpoint{LastTimestamp: time.Date(2025, 1, 1, 10, 0, 5, 0, time.UTC)}

	items := collect(t, src.ExtractSince(context.Background(), cp))
	require.Len(t, items, 2, "items at the watermark are excluded")
	assert.Equal(t, 2, items[0].Metadata.MessageIndex)
	assert.True(t, strings.HasPrefix(items[1].Content, "Done"))
}

func TestSource_CheckpointPersistence(t *testing.T) {
	ctx := context.Background()
	_, src := setup(t)

	cp, err := src.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)

	ts := time.Date(2025, 1, 1, 10, 1, 0, 0, time.UTC)
	require.NoError(t, src.SaveCheckpoint(ctx, domain.Checkpoint{LastTimestamp: ts}))

	cp, err = src.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Empty(t, collect(t, src.ExtractSince(ctx, cp)))
}

func TestSource_CancelledContext(t *testing.T) {
	_, src := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range src.ExtractAll(ctx) {
		if err != nil {
			gotErr = err
			break
		}
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestParseLine_SkipsNonMessages(t *testing.T) {
	tests := []struct {
		name string
		obj  map[string]any
	}{
		{"summary", map[string]any{"type": "summary", "summary": "x"}},
		{"empty content", map[string]any{"type": "human", "content": "  "}},
		{"thinking only", map[string]any{"type": "assistant", "message": map[string]any{
			"role": "assistant", "content": []any{map[string]any{"type": "thinking", "thinking": "hmm"}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseLine(tt.obj, "s", 0)
			assert.False(t, ok)
		})
	}
}
