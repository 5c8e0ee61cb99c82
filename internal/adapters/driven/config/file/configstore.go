package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

const (
	// ConfigDirName is the per-project directory holding config and data.
	ConfigDirName = ".xtctx"

	// ConfigFileName is the settings file inside ConfigDirName.
	ConfigFileName = "config.toml"

	// APIKeyEnv overrides embedding.api_key when set.
	APIKeyEnv = "OPENAI_API_KEY"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore is a file-based implementation of driven.SettingsStore using TOML.
type SettingsStore struct {
	mu         sync.Mutex
	projectDir string
	filePath   string
}

// NewSettingsStore creates a store for the project rooted at projectDir.
// If projectDir is empty the working directory is used.
func NewSettingsStore(projectDir string) (*SettingsStore, error) {
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		projectDir = wd
	}
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}

	return &SettingsStore{
		projectDir: abs,
		filePath:   filepath.Join(abs, ConfigDirName, ConfigFileName),
	}, nil
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// Exists reports whether the configuration file has been written.
func (s *SettingsStore) Exists() bool {
	_, err := os.Stat(s.filePath)
	return err == nil
}

// Load reads the file and overlays it on the defaults. A missing file
// yields the defaults.
func (s *SettingsStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := domain.DefaultSettings()
	settings.ProjectDir = s.projectDir

	data, err := os.ReadFile(s.filePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.Settings{}, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		var cfg fileConfig
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return domain.Settings{}, fmt.Errorf("parsing %s: %w", s.filePath, err)
		}
		if err := cfg.apply(&settings); err != nil {
			return domain.Settings{}, fmt.Errorf("parsing %s: %w", s.filePath, err)
		}
	}

	if key := os.Getenv(APIKeyEnv); key != "" && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = key
	}

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// Save writes settings to the TOML file, creating the directory if needed.
func (s *SettingsStore) Save(settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(fromSettings(settings))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// Restricted permissions: the file may hold an API key.
	return os.WriteFile(s.filePath, data, 0600)
}

// fileConfig mirrors the on-disk layout. Zero values mean "use the default".
type fileConfig struct {
	DataDir      string          `toml:"data_dir,omitempty"`
	KnowledgeDir string          `toml:"knowledge_dir,omitempty"`
	Ingestion    ingestionConfig `toml:"ingestion"`
	Embedding    embeddingConfig `toml:"embedding"`
	Search       searchConfig    `toml:"search"`
	Knowledge    knowledgeConfig `toml:"knowledge"`
}

type ingestionConfig struct {
	PollInterval    string         `toml:"poll_interval,omitempty"`
	Debounce        string         `toml:"debounce,omitempty"`
	CallTimeout     string         `toml:"call_timeout,omitempty"`
	WatchPaths      []string       `toml:"watch_paths,omitempty"`
	ExcludePatterns []string       `toml:"exclude_patterns,omitempty"`
	Table           string         `toml:"table,omitempty"`
	StartupRetry    *retryConfig   `toml:"startup_retry,omitempty"`
	Sources         []sourceConfig `toml:"sources,omitempty"`
}

type retryConfig struct {
	Attempts int     `toml:"attempts,omitempty"`
	MinDelay string  `toml:"min_delay,omitempty"`
	MaxDelay string  `toml:"max_delay,omitempty"`
	Factor   float64 `toml:"factor,omitempty"`
}

type sourceConfig struct {
	Tool    string `toml:"tool"`
	Enabled *bool  `toml:"enabled,omitempty"`
	Path    string `toml:"path,omitempty"`
}

type embeddingConfig struct {
	Provider          string  `toml:"provider,omitempty"`
	Model             string  `toml:"model,omitempty"`
	BaseURL           string  `toml:"base_url,omitempty"`
	APIKey            string  `toml:"api_key,omitempty"`
	Dimensions        int     `toml:"dimensions,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

type searchConfig struct {
	DefaultMode  string `toml:"default_mode,omitempty"`
	DefaultLimit int    `toml:"default_limit,omitempty"`
}

type knowledgeConfig struct {
	SourceTool string              `toml:"source_tool,omitempty"`
	DomainTags map[string][]string `toml:"domain_tags,omitempty"`
}

// apply overlays the non-zero values of c onto settings.
func (c fileConfig) apply(settings *domain.Settings) error {
	setString(&settings.DataDir, c.DataDir)
	setString(&settings.KnowledgeDir, c.KnowledgeDir)

	in := &settings.Ingestion
	if err := setDuration(&in.PollInterval, "ingestion.poll_interval", c.Ingestion.PollInterval); err != nil {
		return err
	}
	if err := setDuration(&in.Debounce, "ingestion.debounce", c.Ingestion.Debounce); err != nil {
		return err
	}
	if err := setDuration(&in.CallTimeout, "ingestion.call_timeout", c.Ingestion.CallTimeout); err != nil {
		return err
	}
	if c.Ingestion.WatchPaths != nil {
		in.WatchPaths = c.Ingestion.WatchPaths
	}
	if c.Ingestion.ExcludePatterns != nil {
		in.ExcludePatterns = c.Ingestion.ExcludePatterns
	}
	setString(&in.Table, c.Ingestion.Table)
	if r := c.Ingestion.StartupRetry; r != nil {
		if r.Attempts > 0 {
			in.StartupRetry.Attempts = r.Attempts
		}
		if err := setDuration(&in.StartupRetry.MinDelay, "ingestion.startup_retry.min_delay", r.MinDelay); err != nil {
			return err
		}
		if err := setDuration(&in.StartupRetry.MaxDelay, "ingestion.startup_retry.max_delay", r.MaxDelay); err != nil {
			return err
		}
		if r.Factor > 0 {
			in.StartupRetry.Factor = r.Factor
		}
	}
	for _, src := range c.Ingestion.Sources {
		if src.Tool == "" {
			return fmt.Errorf("%w: ingestion.sources entry without tool", domain.ErrInvalidInput)
		}
		enabled := true
		if src.Enabled != nil {
			enabled = *src.Enabled
		}
		in.Sources = append(in.Sources, domain.SourceSettings{Tool: src.Tool, Enabled: enabled, Path: src.Path})
	}

	emb := &settings.Embedding
	if c.Embedding.Provider != "" {
		provider := domain.EmbeddingProvider(c.Embedding.Provider)
		if provider != emb.Provider {
			// A different provider invalidates the default model and dimensions.
			emb.Model = domain.DefaultEmbeddingModels()[provider]
			emb.Dimensions = domain.EmbeddingDimensions()[emb.Model]
		}
		emb.Provider = provider
	}
	if c.Embedding.Model != "" {
		emb.Model = c.Embedding.Model
		if c.Embedding.Dimensions == 0 {
			emb.Dimensions = domain.EmbeddingDimensions()[emb.Model]
		}
	}
	setString(&emb.BaseURL, c.Embedding.BaseURL)
	setString(&emb.APIKey, c.Embedding.APIKey)
	if c.Embedding.Dimensions > 0 {
		emb.Dimensions = c.Embedding.Dimensions
	}
	if c.Embedding.RequestsPerSecond > 0 {
		emb.RequestsPerSecond = c.Embedding.RequestsPerSecond
	}

	if c.Search.DefaultMode != "" {
		settings.Search.DefaultMode = domain.SearchMode(c.Search.DefaultMode)
	}
	if c.Search.DefaultLimit > 0 {
		settings.Search.DefaultLimit = c.Search.DefaultLimit
	}

	setString(&settings.Knowledge.SourceTool, c.Knowledge.SourceTool)
	if c.Knowledge.DomainTags != nil {
		settings.Knowledge.DomainTags = c.Knowledge.DomainTags
	}
	return nil
}

func fromSettings(s domain.Settings) fileConfig {
	sources := make([]sourceConfig, 0, len(s.Ingestion.Sources))
	for _, src := range s.Ingestion.Sources {
		enabled := src.Enabled
		sources = append(sources, sourceConfig{Tool: src.Tool, Enabled: &enabled, Path: src.Path})
	}
	retry := s.Ingestion.StartupRetry

	return fileConfig{
		DataDir:      s.DataDir,
		KnowledgeDir: s.KnowledgeDir,
		Ingestion: ingestionConfig{
			PollInterval:    s.Ingestion.PollInterval.String(),
			Debounce:        s.Ingestion.Debounce.String(),
			CallTimeout:     s.Ingestion.CallTimeout.String(),
			WatchPaths:      s.Ingestion.WatchPaths,
			ExcludePatterns: s.Ingestion.ExcludePatterns,
			Table:           s.Ingestion.Table,
			StartupRetry: &retryConfig{
				Attempts: retry.Attempts,
				MinDelay: retry.MinDelay.String(),
				MaxDelay: retry.MaxDelay.String(),
				Factor:   retry.Factor,
			},
			Sources: sources,
		},
		Embedding: embeddingConfig{
			Provider:          string(s.Embedding.Provider),
			Model:             s.Embedding.Model,
			BaseURL:           s.Embedding.BaseURL,
			APIKey:            s.Embedding.APIKey,
			Dimensions:        s.Embedding.Dimensions,
			RequestsPerSecond: s.Embedding.RequestsPerSecond,
		},
		Search: searchConfig{
			DefaultMode:  string(s.Search.DefaultMode),
			DefaultLimit: s.Search.DefaultLimit,
		},
		Knowledge: knowledgeConfig{
			SourceTool: s.Knowledge.SourceTool,
			DomainTags: s.Knowledge.DomainTags,
		},
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	*dst = d
	return nil
}
