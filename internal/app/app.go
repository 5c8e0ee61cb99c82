// Package app wires the driven adapters into the core services for one
// project directory. Both the CLI and the MCP server run against an App.
package app

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/xtctx/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/xtctx/internal/adapters/driven/config/file"
	"github.com/custodia-labs/xtctx/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/xtctx/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xtctx/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/xtctx/internal/adapters/driven/watcher"
	"github.com/custodia-labs/xtctx/internal/connectors/builtin"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/core/services"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Options selects how an App is assembled.
type Options struct {
	// ProjectDir is the project root. Empty means the working directory.
	ProjectDir string

	// InMemory backs records and checkpoints with memory stores, so nothing
	// is written under the data directory.
	InMemory bool

	// Version is recorded as the tool version on knowledge records.
	Version string
}

// App holds the wired services for one project.
type App struct {
	Settings       domain.Settings
	SettingsStore  *configfile.SettingsStore
	Records        driven.RecordStore
	Checkpoints    driven.CheckpointStore
	KnowledgeStore *file.KnowledgeStore
	Embedding      *services.LazyEmbeddingService
	Sources        *services.SourceRegistry
	Coordinator    *services.Coordinator
	Daemon         *services.Daemon
	Search         *services.SearchService
	Knowledge      *services.KnowledgeService

	closers []func() error
}

// Open loads the project's settings and assembles the services.
// Embedding providers are not contacted until first use.
func Open(opts Options) (*App, error) {
	settingsStore, err := configfile.NewSettingsStore(opts.ProjectDir)
	if err != nil {
		return nil, err
	}
	settings, err := settingsStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	a := &App{Settings: settings, SettingsStore: settingsStore}

	if opts.InMemory {
		a.Records = memory.NewRecordStore()
		a.Checkpoints = memory.NewCheckpointStore()
	} else {
		store, err := sqlite.NewStore(settings.Resolve(settings.DataDir))
		if err != nil {
			return nil, fmt.Errorf("open record store: %w", err)
		}
		a.Records = store
		a.Checkpoints = store.CheckpointStore()
		a.closers = append(a.closers, store.Close)
	}

	a.Embedding = services.NewLazyEmbeddingService(
		ai.Initializer(settings.Embedding),
		ai.Dimensions(settings.Embedding),
		settings.Embedding.Model,
	)
	a.closers = append(a.closers, a.Embedding.Close)

	a.Sources = services.NewSourceRegistry(builtin.Adapters(settings, a.Checkpoints)...)
	a.Coordinator = services.NewCoordinator(a.Sources, a.Embedding, a.Records)
	a.Coordinator.SetTable(settings.Ingestion.Table)
	a.Coordinator.SetCallTimeout(settings.Ingestion.CallTimeout)

	daemonConfig := settings.DaemonConfig()
	w, err := watcher.New(daemonConfig.Debounce, daemonConfig.ExcludePatterns)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	a.Daemon = services.NewDaemon(daemonConfig, a.Coordinator, w)

	a.Search = services.NewSearchService(a.Records, a.Embedding)
	a.Search.SetDefaults(settings.Search.DefaultMode, settings.Search.DefaultLimit)

	a.KnowledgeStore = file.NewKnowledgeStore(settings.Resolve(settings.KnowledgeDir))
	index := services.NewKnowledgeIndex(a.Embedding, a.Records)
	a.Knowledge = services.NewKnowledgeService(a.KnowledgeStore, index, index)
	a.Knowledge.SetSourceTool(settings.Knowledge.SourceTool)
	a.Knowledge.SetDomainTags(settings.Knowledge.DomainTags)
	a.Knowledge.SetToolVersion(opts.Version)

	logger.Debug("app: project=%s data=%s in_memory=%t embedding=%s/%s",
		settings.ProjectDir, settings.Resolve(settings.DataDir), opts.InMemory,
		settings.Embedding.Provider, settings.Embedding.Model)
	return a, nil
}

// Close stops the daemon and releases stores and providers.
func (a *App) Close() error {
	var errs []error
	if a.Daemon != nil {
		if err := a.Daemon.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
