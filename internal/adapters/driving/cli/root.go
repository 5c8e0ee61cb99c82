// Package cli implements the xtctx command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xtctx/internal/app"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipServices marks commands that run without opening the project.
const skipServices = "xtctx/skip-services"

var (
	projectDir string
	verbose    bool
)

// Services used by the commands. openServices fills them before a command runs.
var (
	searchService    driving.SearchService
	knowledgeService driving.KnowledgeService
	ingestionService driving.IngestionCoordinator
	daemonService    driving.IngestionDaemon
	defaultLimit     int

	closeServices func() error
)

// openServices opens the project and sets the service variables.
// Tests replace it to inject mocks.
var openServices = func(opts app.Options) (func() error, error) {
	a, err := app.Open(opts)
	if err != nil {
		return nil, err
	}
	searchService = a.Search
	knowledgeService = a.Knowledge
	ingestionService = a.Coordinator
	daemonService = a.Daemon
	defaultLimit = a.Settings.Search.DefaultLimit
	return a.Close, nil
}

var rootCmd = &cobra.Command{
	Use:   "xtctx",
	Short: "Cross-tool context for AI coding assistants",
	Long: `xtctx harvests conversation history from the AI coding tools installed
on this machine (Claude Code, Cursor, Codex, Copilot and Gemini), indexes it
per project, and serves it back through search and an MCP server together
with the project's recorded decisions, error solutions and insights.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", "", "project directory (default: working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Finalizers run whether or not the command failed.
	cobra.OnFinalize(func() {
		if err := releaseServices(); err != nil {
			logger.Warn("closing services: %v", err)
		}
	})
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Name() == "help" {
		return nil
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipServices] != "" {
			return nil
		}
	}

	if err := releaseServices(); err != nil {
		logger.Warn("closing previous services: %v", err)
	}

	closer, err := openServices(app.Options{
		ProjectDir: projectDir,
		InMemory:   cmd == ingestCmd && ingestDryRun,
		Version:    version,
	})
	if err != nil {
		return err
	}
	closeServices = closer
	return nil
}

func releaseServices() error {
	if closeServices == nil {
		return nil
	}
	closer := closeServices
	closeServices = nil
	return closer()
}
