package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that produces embeddings.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderLocal is the built-in feature-hashing embedder. It needs
	// no model server and is the default.
	EmbeddingProviderLocal EmbeddingProvider = "local"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI cloud API.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderLocal, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderLocal:
		return "Local (feature hashing, offline)"
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// DefaultEmbeddingModels returns default models for each provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderLocal:  "hash-384",
		EmbeddingProviderOllama: "nomic-embed-text",
		EmbeddingProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hash-384": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider          EmbeddingProvider
	Model             string
	BaseURL           string
	APIKey            string
	Dimensions        int
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// SourceSettings overrides defaults for one source adapter.
type SourceSettings struct {
	// Tool is the adapter name (e.g. "codex").
	Tool string

	// Enabled toggles the adapter. Adapters without an entry are enabled.
	Enabled bool

	// Path overrides the adapter's default store location.
	Path string
}

// IngestionSettings holds coordinator and scheduler configuration.
type IngestionSettings struct {
	PollInterval    time.Duration
	Debounce        time.Duration
	CallTimeout     time.Duration
	WatchPaths      []string
	ExcludePatterns []string
	Table           string
	StartupRetry    RetryPolicy
	Sources         []SourceSettings
}

// SearchSettings holds retrieval defaults.
type SearchSettings struct {
	DefaultMode  SearchMode
	DefaultLimit int
}

// KnowledgeSettings holds write pipeline configuration.
type KnowledgeSettings struct {
	// SourceTool is recorded on records written through this process.
	SourceTool string

	// DomainTags maps a tag to the keywords that imply it.
	DomainTags map[string][]string
}

// Settings holds all application settings.
type Settings struct {
	// ProjectDir is the project root; relative paths resolve against it.
	ProjectDir string

	DataDir      string
	KnowledgeDir string

	Ingestion IngestionSettings
	Embedding EmbeddingSettings
	Search    SearchSettings
	Knowledge KnowledgeSettings
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		DataDir:      filepath.Join(".xtctx", "data"),
		KnowledgeDir: filepath.Join(".xtctx", "knowledge"),
		Ingestion: IngestionSettings{
			PollInterval:    DefaultPollInterval,
			Debounce:        DefaultDebounce,
			CallTimeout:     DefaultCallTimeout,
			ExcludePatterns: []string{"node_modules/**", "dist/**", ".git/**"},
			Table:           TableContext,
			StartupRetry:    DefaultRetryPolicy(),
		},
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingProviderLocal,
			Model:      "hash-384",
			Dimensions: 384,
		},
		Search: SearchSettings{
			DefaultMode:  SearchModeHybrid,
			DefaultLimit: DefaultSearchLimit,
		},
		Knowledge: KnowledgeSettings{
			SourceTool: "mcp",
			DomainTags: DefaultDomainTags(),
		},
	}
}

// DefaultDomainTags returns the built-in tag keyword map.
func DefaultDomainTags() map[string][]string {
	return map[string][]string{
		"database": {"sql", "sqlite", "postgres", "migration", "schema", "query", "index"},
		"testing":  {"test", "assert", "mock", "fixture", "coverage"},
		"api":      {"endpoint", "http", "request", "response", "rest", "grpc"},
		"auth":     {"auth", "token", "oauth", "login", "session", "credential"},
		"build":    {"build", "compile", "bundle", "ci", "pipeline", "release"},
		"frontend": {"react", "css", "component", "browser", "ui"},
		"infra":    {"docker", "kubernetes", "deploy", "terraform", "cloud"},
	}
}

// Validate checks settings for values the rest of the system cannot handle.
func (s Settings) Validate() error {
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", ErrUnsupportedProvider, s.Embedding.Provider)
	}
	if !s.Search.DefaultMode.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSearchMode, s.Search.DefaultMode)
	}
	if s.Ingestion.PollInterval < 0 || s.Ingestion.Debounce < 0 || s.Ingestion.CallTimeout < 0 {
		return fmt.Errorf("%w: negative ingestion duration", ErrInvalidInput)
	}
	if s.Search.DefaultLimit < 0 {
		return fmt.Errorf("%w: negative search limit", ErrInvalidInput)
	}
	return nil
}

// Resolve returns path relative to the project directory unless it is absolute.
func (s Settings) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.ProjectDir, path)
}

// SourceEnabled reports whether the named source is enabled.
func (s Settings) SourceEnabled(tool string) bool {
	for _, src := range s.Ingestion.Sources {
		if src.Tool == tool {
			return src.Enabled
		}
	}
	return true
}

// SourcePath returns the configured store path override for a source.
func (s Settings) SourcePath(tool string) string {
	for _, src := range s.Ingestion.Sources {
		if src.Tool == tool {
			return src.Path
		}
	}
	return ""
}

// DaemonConfig derives the daemon configuration from ingestion settings.
func (s Settings) DaemonConfig() DaemonConfig {
	paths := make([]string, 0, len(s.Ingestion.WatchPaths))
	for _, p := range s.Ingestion.WatchPaths {
		paths = append(paths, s.Resolve(p))
	}
	return DaemonConfig{
		Interval:        s.Ingestion.PollInterval,
		Debounce:        s.Ingestion.Debounce,
		WatchPaths:      paths,
		ExcludePatterns: s.Ingestion.ExcludePatterns,
		Startup:         s.Ingestion.StartupRetry,
	}
}
