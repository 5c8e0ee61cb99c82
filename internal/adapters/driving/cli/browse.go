package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// tuiRunner runs the browser until the user quits. Tests replace it.
var tuiRunner = func(_ *cobra.Command, app *tui.App) error {
	return app.Run()
}

var browseWatch bool

var browseCmd = &cobra.Command{
	Use:     "browse",
	Aliases: []string{"tui"},
	Short:   "Browse history and knowledge interactively",
	Long: `Opens the interactive terminal browser.

Search past conversations and saved knowledge, read hits in full, list
knowledge records by type and check which AI tools were detected.

Controls:
  ↑/k, ↓/j  Navigate
  Enter     Search / open
  Tab       Cycle hybrid, keyword and semantic search
  Ctrl+T    Switch between conversations and knowledge
  i         Ingest now (sources view)
  Esc       Back
  q         Quit (menu)

Use --watch to keep ingesting in the background while browsing.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().BoolVarP(&browseWatch, "watch", "w", false, "run the ingestion daemon while browsing")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	app, err := tui.NewApp(&tui.Ports{
		Search:    searchService,
		Knowledge: knowledgeService,
		Ingestion: ingestionService,
	})
	if err != nil {
		return fmt.Errorf("failed to create browser: %w", err)
	}
	app.WithContext(cmd.Context())

	if browseWatch && daemonService != nil {
		if err := daemonService.Start(cmd.Context()); err != nil {
			return fmt.Errorf("starting daemon: %w", err)
		}
		defer func() {
			if err := daemonService.Stop(); err != nil {
				logger.Warn("stopping daemon: %v", err)
			}
		}()
	}

	if err := tuiRunner(cmd, app); err != nil {
		return fmt.Errorf("browser error: %w", err)
	}
	return nil
}
