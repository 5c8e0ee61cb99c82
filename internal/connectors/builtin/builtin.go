// Package builtin assembles the built-in source adapters from settings.
package builtin

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/xtctx/internal/connectors/claudecode"
	"github.com/custodia-labs/xtctx/internal/connectors/codex"
	"github.com/custodia-labs/xtctx/internal/connectors/copilot"
	"github.com/custodia-labs/xtctx/internal/connectors/cursor"
	"github.com/custodia-labs/xtctx/internal/connectors/gemini"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/logger"
)

type factory struct {
	name        string
	defaultPath func(home string) string
	build       func(path string, checkpoints driven.CheckpointStore) driven.SourceAdapter
}

// Registration order is processing order.
var factories = []factory{
	{claudecode.Name, claudecode.DefaultPath, func(p string, c driven.CheckpointStore) driven.SourceAdapter {
		return claudecode.New(p, c)
	}},
	{cursor.Name, cursor.DefaultPath, func(p string, c driven.CheckpointStore) driven.SourceAdapter {
		return cursor.New(p, c)
	}},
	{codex.Name, codex.DefaultPath, func(p string, c driven.CheckpointStore) driven.SourceAdapter {
		return codex.New(p, c)
	}},
	{copilot.Name, copilot.DefaultPath, func(p string, c driven.CheckpointStore) driven.SourceAdapter {
		return copilot.New(p, c)
	}},
	{gemini.Name, gemini.DefaultPath, func(p string, c driven.CheckpointStore) driven.SourceAdapter {
		return gemini.New(p, c)
	}},
}

// Names returns every built-in source name in registration order.
func Names() []string {
	names := make([]string, len(factories))
	for i, f := range factories {
		names[i] = f.name
	}
	return names
}

// Adapters builds the enabled built-in adapters. A configured path
// overrides the tool's default location; "~" expands to the home directory
// and relative paths resolve against the project directory.
func Adapters(settings domain.Settings, checkpoints driven.CheckpointStore) []driven.SourceAdapter {
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("resolve home directory: %v", err)
	}

	known := make(map[string]bool, len(factories))
	adapters := make([]driven.SourceAdapter, 0, len(factories))
	for _, f := range factories {
		known[f.name] = true
		if !settings.SourceEnabled(f.name) {
			logger.Debug("source %s disabled by config", f.name)
			continue
		}
		path := f.defaultPath(home)
		if override := settings.SourcePath(f.name); override != "" {
			path = settings.Resolve(expandHome(override, home))
		}
		adapters = append(adapters, f.build(path, checkpoints))
	}

	for _, src := range settings.Ingestion.Sources {
		if !known[src.Tool] {
			logger.Warn("unknown source %q in config, ignoring", src.Tool)
		}
	}
	return adapters
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
