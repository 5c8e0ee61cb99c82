package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xtctx/internal/app"
)

// initProject scaffolds a project. Tests replace it.
var initProject = app.Init

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up xtctx for a project",
	Long: `Creates .xtctx/ in the project directory with a default config.toml,
the data directory and one directory per knowledge type. An existing
config file is left untouched.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	result, err := initProject(projectDir)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	if result.ConfigCreated {
		cmd.Printf("Created %s\n", result.ConfigPath)
	} else {
		cmd.Printf("Using existing %s\n", result.ConfigPath)
	}
	cmd.Printf("Data:      %s\n", result.DataDir)
	cmd.Printf("Knowledge: %s\n", result.KnowledgeDir)
	return nil
}
