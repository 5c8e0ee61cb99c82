package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

var (
	ingestFull   bool
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Harvest conversation history from AI tools",
	Long: `Runs one ingestion cycle over every detected AI tool. Only items newer
than each source's checkpoint are extracted unless --full is given.

With --dry-run the cycle runs against in-memory stores: per-source counts
are printed and nothing under .xtctx/data is touched.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestFull, "full", false, "ignore checkpoints and re-extract everything")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "count items without writing to the project store")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := cmd.Context()

	var (
		result domain.CycleResult
		err    error
	)
	if ingestFull {
		cmd.Println("Running full resync...")
		result, err = ingestionService.FullSync(ctx)
	} else {
		cmd.Println("Running ingestion cycle...")
		result, err = ingestionService.RunCycle(ctx)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	for _, ps := range result.PerSource {
		cmd.Printf("  %-12s %d items\n", ps.Source, ps.Items)
	}

	verb := "Ingested"
	if ingestDryRun {
		verb = "Would ingest"
	}
	cmd.Printf("%s %d items from %d sources in %s.\n",
		verb, result.ItemsProcessed, result.SourcesProcessed, result.Duration().Round(time.Millisecond))
	return nil
}
