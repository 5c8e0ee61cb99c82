package app

import (
	"fmt"
	"os"

	configfile "github.com/custodia-labs/xtctx/internal/adapters/driven/config/file"
	"github.com/custodia-labs/xtctx/internal/adapters/driven/storage/file"
)

// InitResult reports what Init prepared.
type InitResult struct {
	ConfigPath    string
	ConfigCreated bool
	DataDir       string
	KnowledgeDir  string
}

// Init scaffolds the .xtctx directory of a project: the config file (only
// if missing), the data directory and one directory per knowledge type.
// Running it again is harmless.
func Init(projectDir string) (InitResult, error) {
	store, err := configfile.NewSettingsStore(projectDir)
	if err != nil {
		return InitResult{}, err
	}
	settings, err := store.Load()
	if err != nil {
		return InitResult{}, fmt.Errorf("load settings: %w", err)
	}

	result := InitResult{
		ConfigPath:   store.Path(),
		DataDir:      settings.Resolve(settings.DataDir),
		KnowledgeDir: settings.Resolve(settings.KnowledgeDir),
	}

	if !store.Exists() {
		// Keys picked up from the environment stay out of the file.
		if settings.Embedding.APIKey == os.Getenv(configfile.APIKeyEnv) {
			settings.Embedding.APIKey = ""
		}
		if err := store.Save(settings); err != nil {
			return result, fmt.Errorf("write config: %w", err)
		}
		result.ConfigCreated = true
	}

	if err := os.MkdirAll(result.DataDir, 0o755); err != nil {
		return result, fmt.Errorf("create data directory: %w", err)
	}
	if err := file.NewKnowledgeStore(result.KnowledgeDir).Initialize(); err != nil {
		return result, fmt.Errorf("create knowledge directories: %w", err)
	}
	return result, nil
}
