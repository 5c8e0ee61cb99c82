package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show detected AI tools",
	Long: `Lists every supported AI tool, whether its conversation store was
found on this machine, and the timestamp ingestion has reached.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	statuses, err := ingestionService.Sources(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	for _, st := range statuses {
		state := "not found"
		if st.Available {
			state = "available"
		}
		cmd.Printf("  %-12s %s\n", st.Name, state)
		if len(st.StorePaths) > 0 {
			cmd.Printf("    Path:  %s\n", strings.Join(st.StorePaths, ", "))
		}
		if !st.Checkpoint.IsZero() {
			cmd.Printf("    Since: %s\n", st.Checkpoint.LastTimestamp.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
