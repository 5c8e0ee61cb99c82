package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

const snippetLength = 160

var (
	searchLimit int
	searchMode  string
	searchTable string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search past AI conversations",
	Long: `Searches the conversation history harvested from AI coding tools.
Hybrid mode fuses keyword (full-text) and semantic (vector) rankings with
Reciprocal Rank Fusion. Use --table knowledge to search saved decisions,
error solutions and insights instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "keyword, semantic or hybrid (default from config)")
	searchCmd.Flags().StringVar(&searchTable, "table", domain.TableContext, "record table: context or knowledge")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		Table: searchTable,
		Mode:  domain.SearchMode(strings.ToLower(searchMode)),
		Limit: searchLimit,
	}

	results, err := searchService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// searchMeta picks the display fields out of either table's metadata.
type searchMeta struct {
	SourceTool    string `json:"source_tool"`
	SourceSession string `json:"source_session"`
	Role          string `json:"role"`
	Timestamp     string `json:"timestamp"`
	Title         string `json:"title"`
	Type          string `json:"type"`
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		var meta searchMeta
		_ = json.Unmarshal([]byte(results[i].Metadata), &meta)

		// Format: [N] Heading (Score)
		heading := meta.Title
		if heading == "" && meta.SourceTool != "" {
			heading = meta.SourceTool + " / " + meta.Role
		}
		if heading == "" {
			heading = results[i].ID
		}

		cmd.Printf("  [%d] %s (%.3f)\n", i+1, heading, results[i].Score)
		switch {
		case meta.Type != "":
			cmd.Printf("      Type: %s  ID: %s\n", meta.Type, results[i].ID)
		case meta.SourceSession != "":
			cmd.Printf("      Session: %s  %s\n", meta.SourceSession, meta.Timestamp)
		}
		cmd.Printf("      %s\n", snippet(results[i].Text))
		cmd.Println()
	}
	return nil
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > snippetLength {
		return string(r[:snippetLength]) + "..."
	}
	return text
}
