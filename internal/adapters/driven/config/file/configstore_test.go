package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

func writeConfig(t *testing.T, projectDir, content string) {
	t.Helper()
	dir := filepath.Join(projectDir, ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0600))
}

func TestNewSettingsStore_Path(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSettingsStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".xtctx", "config.toml"), store.Path())
	assert.False(t, store.Exists())
}

func TestSettingsStore_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	require.NoError(t, err)

	settings, err := store.Load()
	require.NoError(t, err)

	want := domain.DefaultSettings()
	assert.Equal(t, dir, settings.ProjectDir)
	assert.Equal(t, want.Ingestion.PollInterval, settings.Ingestion.PollInterval)
	assert.Equal(t, want.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, domain.SearchModeHybrid, settings.Search.DefaultMode)
	assert.Equal(t, "mcp", settings.Knowledge.SourceTool)
}

func TestSettingsStore_LoadOverlaysFile(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	dir := t.TempDir()
	writeConfig(t, dir, `
data_dir = "/var/lib/xtctx"

[ingestion]
poll_interval = "1m"
debounce = "500ms"
call_timeout = "0s"
watch_paths = ["/tmp/sessions"]

[ingestion.startup_retry]
attempts = 5
min_delay = "100ms"

[[ingestion.sources]]
tool = "cursor"
enabled = false

[[ingestion.sources]]
tool = "codex"
path = "/opt/codex"

[embedding]
provider = "ollama"

[search]
default_mode = "keyword"
default_limit = 3
`)

	store, err := NewSettingsStore(dir)
	require.NoError(t, err)
	settings, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/xtctx", settings.DataDir)
	assert.Equal(t, filepath.Join(".xtctx", "knowledge"), settings.KnowledgeDir)
	assert.Equal(t, time.Minute, settings.Ingestion.PollInterval)
	assert.Equal(t, 500*time.Millisecond, settings.Ingestion.Debounce)
	assert.Zero(t, settings.Ingestion.CallTimeout)
	assert.Equal(t, []string{"/tmp/sessions"}, settings.Ingestion.WatchPaths)
	assert.Equal(t, 5, settings.Ingestion.StartupRetry.Attempts)
	assert.Equal(t, 100*time.Millisecond, settings.Ingestion.StartupRetry.MinDelay)
	assert.Equal(t, domain.DefaultRetryPolicy().MaxDelay, settings.Ingestion.StartupRetry.MaxDelay)

	assert.False(t, settings.SourceEnabled("cursor"))
	assert.True(t, settings.SourceEnabled("codex"))
	assert.True(t, settings.SourceEnabled("gemini"))
	assert.Equal(t, "/opt/codex", settings.SourcePath("codex"))

	assert.Equal(t, domain.EmbeddingProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, 768, settings.Embedding.Dimensions)

	assert.Equal(t, domain.SearchModeKeyword, settings.Search.DefaultMode)
	assert.Equal(t, 3, settings.Search.DefaultLimit)
}

func TestSettingsStore_LoadRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[ingestion]\npoll_interval = \"soon\"\n")

	store, err := NewSettingsStore(dir)
	require.NoError(t, err)
	_, err = store.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "ingestion.poll_interval")
}

func TestSettingsStore_LoadRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[embedding]\nprovider = \"cohere\"\n")

	store, err := NewSettingsStore(dir)
	require.NoError(t, err)
	_, err = store.Load()
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestSettingsStore_LoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[ingestion\n")

	store, err := NewSettingsStore(dir)
	require.NoError(t, err)
	_, err = store.Load()
	assert.Error(t, err)
}

func TestSettingsStore_APIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "sk-env")
	dir := t.TempDir()
	writeConfig(t, dir, "[embedding]\nprovider = \"openai\"\n")

	store, err := NewSettingsStore(dir)
	require.NoError(t, err)
	settings, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, 1536, settings.Embedding.Dimensions)
}

func TestSettingsStore_FileAPIKeyWinsOverEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "sk-env")
	dir := t.TempDir()
	writeConfig(t, dir, "[embedding]\nprovider = \"openai\"\napi_key = \"sk-file\"\n")

	store, err := NewSettingsStore(dir)
	require.NoError(t, err)
	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-file", settings.Embedding.APIKey)
}

func TestSettingsStore_SaveRoundTrip(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	require.NoError(t, err)

	settings, err := store.Load()
	require.NoError(t, err)
	settings.Ingestion.CallTimeout = 0
	settings.Ingestion.Sources = []domain.SourceSettings{{Tool: "gemini", Enabled: false}}
	settings.Search.DefaultLimit = 7
	require.NoError(t, store.Save(settings))
	assert.True(t, store.Exists())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Zero(t, reloaded.Ingestion.CallTimeout)
	assert.False(t, reloaded.SourceEnabled("gemini"))
	assert.Equal(t, 7, reloaded.Search.DefaultLimit)
	assert.Equal(t, settings.Knowledge.DomainTags, reloaded.Knowledge.DomainTags)
}

func TestSettingsStore_SaveRejectsInvalid(t *testing.T) {
	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	bad := domain.DefaultSettings()
	bad.Search.DefaultMode = "fuzzy"
	assert.ErrorIs(t, store.Save(bad), domain.ErrInvalidSearchMode)
	assert.False(t, store.Exists())
}
