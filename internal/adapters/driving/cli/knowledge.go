package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

var knowledgeCmd = &cobra.Command{
	Use:     "knowledge",
	Aliases: []string{"kb"},
	Short:   "Manage project knowledge",
	Long: `List, view and record the project's decisions, error solutions and
insights. Records live as YAML under .xtctx/knowledge and are never
deleted; a near-duplicate write supersedes the older record instead.`,
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge records, newest first",
	Args:  cobra.NoArgs,
	RunE:  runKnowledgeList,
}

var knowledgeShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one knowledge record",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeShow,
}

var knowledgeDecisionCmd = &cobra.Command{
	Use:   "decision [title]",
	Short: "Record a decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeDecision,
}

var knowledgeErrorCmd = &cobra.Command{
	Use:   "error [error]",
	Short: "Record an error and its solution",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeError,
}

var knowledgeInsightCmd = &cobra.Command{
	Use:   "insight [insight]",
	Short: "Record an insight",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeInsight,
}

// Flags for the knowledge commands.
var (
	knowledgeType    string
	knowledgeQuery   string
	knowledgeJSON    bool
	knowledgeContext string
	knowledgeFiles   []string
	knowledgeSession string

	decisionRationale    string
	decisionAlternatives []string
	errorSolution        string
)

func init() {
	knowledgeListCmd.Flags().StringVarP(&knowledgeType, "type", "t", "all", "decision, error_solution, insight, convention, gotcha or all")
	knowledgeListCmd.Flags().StringVarP(&knowledgeQuery, "query", "q", "", "filter by text in title, body or tags")
	knowledgeListCmd.Flags().BoolVar(&knowledgeJSON, "json", false, "output records as JSON")
	knowledgeShowCmd.Flags().BoolVar(&knowledgeJSON, "json", false, "output the record as JSON")

	for _, c := range []*cobra.Command{knowledgeDecisionCmd, knowledgeErrorCmd, knowledgeInsightCmd} {
		c.Flags().StringVar(&knowledgeContext, "context", "", "surrounding context")
		c.Flags().StringSliceVarP(&knowledgeFiles, "file", "f", nil, "referenced file (repeatable)")
		c.Flags().StringVar(&knowledgeSession, "session", "", "originating session id")
	}
	knowledgeDecisionCmd.Flags().StringVarP(&decisionRationale, "rationale", "r", "", "why the decision was made")
	knowledgeDecisionCmd.Flags().StringSliceVarP(&decisionAlternatives, "alternative", "a", nil, "rejected alternative (repeatable)")
	_ = knowledgeDecisionCmd.MarkFlagRequired("rationale")
	knowledgeErrorCmd.Flags().StringVarP(&errorSolution, "solution", "s", "", "what fixed it")
	_ = knowledgeErrorCmd.MarkFlagRequired("solution")

	knowledgeCmd.AddCommand(knowledgeListCmd)
	knowledgeCmd.AddCommand(knowledgeShowCmd)
	knowledgeCmd.AddCommand(knowledgeDecisionCmd)
	knowledgeCmd.AddCommand(knowledgeErrorCmd)
	knowledgeCmd.AddCommand(knowledgeInsightCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func runKnowledgeList(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	kt := domain.KnowledgeType(strings.ToLower(knowledgeType))
	records, err := knowledgeService.List(cmd.Context(), kt, knowledgeQuery)
	if err != nil {
		return fmt.Errorf("failed to list knowledge: %w", err)
	}

	if knowledgeJSON {
		if records == nil {
			records = []domain.KnowledgeRecord{}
		}
		return printJSON(cmd, records)
	}

	if len(records) == 0 {
		cmd.Println("No knowledge records found.")
		return nil
	}

	for i := range records {
		rec := &records[i]
		status := ""
		if !rec.IsActive() {
			status = " (superseded by " + rec.SupersededBy + ")"
		}
		cmd.Printf("  %s  %-14s %s%s\n", rec.ID, rec.Type, rec.Title, status)
	}
	cmd.Printf("\nTotal: %d records\n", len(records))
	return nil
}

func runKnowledgeShow(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	rec, err := knowledgeService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get knowledge record: %w", err)
	}

	if knowledgeJSON {
		return printJSON(cmd, rec)
	}

	cmd.Printf("%s\n\n", rec.Title)
	cmd.Printf("  ID:       %s\n", rec.ID)
	cmd.Printf("  Type:     %s\n", rec.Type)
	cmd.Printf("  Created:  %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Source:   %s\n", rec.SourceTool)
	if rec.Supersedes != "" {
		cmd.Printf("  Replaces: %s\n", rec.Supersedes)
	}
	if rec.SupersededBy != "" {
		cmd.Printf("  Replaced by: %s\n", rec.SupersededBy)
	}
	if len(rec.DomainTags) > 0 {
		cmd.Printf("  Tags:     %s\n", strings.Join(rec.DomainTags, ", "))
	}
	if len(rec.ReferencedFiles) > 0 {
		cmd.Printf("  Files:    %s\n", strings.Join(rec.ReferencedFiles, ", "))
	}
	cmd.Printf("\n%s\n", rec.Body)
	return nil
}

func runKnowledgeDecision(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	result, err := knowledgeService.SaveDecision(cmd.Context(), driving.DecisionInput{
		Title:                  args[0],
		Rationale:              decisionRationale,
		Context:                knowledgeContext,
		AlternativesConsidered: decisionAlternatives,
		ReferencedFiles:        knowledgeFiles,
		SourceSession:          knowledgeSession,
	})
	return reportWrite(cmd, result, err)
}

func runKnowledgeError(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	result, err := knowledgeService.SaveErrorSolution(cmd.Context(), driving.ErrorSolutionInput{
		Error:           args[0],
		Solution:        errorSolution,
		Context:         knowledgeContext,
		ReferencedFiles: knowledgeFiles,
		SourceSession:   knowledgeSession,
	})
	return reportWrite(cmd, result, err)
}

func runKnowledgeInsight(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	result, err := knowledgeService.SaveInsight(cmd.Context(), driving.InsightInput{
		Insight:         args[0],
		Context:         knowledgeContext,
		ReferencedFiles: knowledgeFiles,
		SourceSession:   knowledgeSession,
	})
	return reportWrite(cmd, result, err)
}

func reportWrite(cmd *cobra.Command, result domain.WriteResult, err error) error {
	if err != nil {
		return fmt.Errorf("failed to save knowledge: %w", err)
	}

	switch result.Action {
	case domain.WriteCreated:
		cmd.Printf("Saved %s\n", result.ID)
	case domain.WriteSuperseded:
		cmd.Printf("Saved %s (supersedes %s)\n", result.ID, result.ReplacedID)
	case domain.WriteDuplicateRejected:
		cmd.Printf("Not saved: duplicate of %s\n", result.ID)
	}
	for _, w := range result.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}
	return nil
}
