package builtin

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"claude-code", "cursor", "codex", "copilot", "gemini"}, Names())
}

func TestAdapters_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	settings := domain.DefaultSettings()
	settings.ProjectDir = "/work/repo"

	adapters := Adapters(settings, nil)
	require.Len(t, adapters, 5)
	for i, name := range Names() {
		assert.Equal(t, name, adapters[i].Name())
	}
	assert.Equal(t, []string{filepath.Join("/home/dev", ".claude", "projects")}, adapters[0].StorePaths())
}

func TestAdapters_SourceSettings(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	settings := domain.DefaultSettings()
	settings.ProjectDir = "/work/repo"
	settings.Ingestion.Sources = []domain.SourceSettings{
		{Tool: "cursor", Enabled: false},
		{Tool: "codex", Enabled: true, Path: "~/alt/codex"},
		{Tool: "gemini", Enabled: true, Path: "fixtures/gemini"},
		{Tool: "made-up", Enabled: true},
	}

	adapters := Adapters(settings, nil)
	require.Len(t, adapters, 4)

	byName := make(map[string][]string)
	for _, a := range adapters {
		byName[a.Name()] = a.StorePaths()
	}
	assert.NotContains(t, byName, "cursor")
	assert.Equal(t, []string{filepath.Join("/home/dev", "alt", "codex")}, byName["codex"])
	assert.Equal(t, []string{filepath.Join("/work/repo", "fixtures", "gemini")}, byName["gemini"])
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/h", expandHome("~", "/h"))
	assert.Equal(t, filepath.Join("/h", "x"), expandHome("~/x", "/h"))
	assert.Equal(t, "~x", expandHome("~x", "/h"))
	assert.Equal(t, "/abs", expandHome("/abs", "/h"))
}
