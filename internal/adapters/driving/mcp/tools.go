package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

const (
	formatMarkdown = "markdown"
	formatJSON     = "json"

	// filterOverfetch widens the search window when hits are post-filtered by source.
	filterOverfetch = 4
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query        string   `json:"query" jsonschema:"what to look for in past conversations"`
	Mode         string   `json:"mode,omitempty" jsonschema:"hybrid, semantic or keyword (default from config)"`
	Table        string   `json:"table,omitempty" jsonschema:"context for conversations or knowledge for saved records (default context)"`
	SourceFilter []string `json:"source_filter,omitempty" jsonschema:"only keep hits from these tools, e.g. claude-code or cursor"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default from config)"`
	Format       string   `json:"format,omitempty" jsonschema:"markdown or json (default markdown)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// SearchHit is one search result with its metadata unpacked.
type SearchHit struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Score      float64  `json:"score"`
	SourceTool string   `json:"source_tool,omitempty"`
	Session    string   `json:"session,omitempty"`
	Role       string   `json:"role,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
	Title      string   `json:"title,omitempty"`
	Type       string   `json:"type,omitempty"`
	Files      []string `json:"referenced_files,omitempty"`
}

// hitMetadata covers the metadata keys of both record tables.
type hitMetadata struct {
	SourceTool      string   `json:"source_tool"`
	SourceSession   string   `json:"source_session"`
	Role            string   `json:"role"`
	Timestamp       string   `json:"timestamp"`
	CreatedAt       string   `json:"created_at"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	ReferencedFiles []string `json:"referenced_files"`
}

// KnowledgeListInput is the input schema for the project knowledge tool.
type KnowledgeListInput struct {
	Type   string `json:"type,omitempty" jsonschema:"decision, error_solution, insight, convention, gotcha or all (default all)"`
	Query  string `json:"query,omitempty" jsonschema:"keep records whose title, body or tags contain this text"`
	Format string `json:"format,omitempty" jsonschema:"markdown or json (default markdown)"`
}

// KnowledgeListOutput is the output schema for the project knowledge tool.
type KnowledgeListOutput struct {
	Type    string                   `json:"type"`
	Records []domain.KnowledgeRecord `json:"records"`
	Count   int                      `json:"count"`
}

// GetKnowledgeInput is the input schema for the get knowledge tool.
type GetKnowledgeInput struct {
	ID     string `json:"id" jsonschema:"identifier of the knowledge record"`
	Format string `json:"format,omitempty" jsonschema:"markdown or json (default markdown)"`
}

// SaveDecisionInput is the input schema for the save decision tool.
type SaveDecisionInput struct {
	Title                  string   `json:"title" jsonschema:"short statement of the decision"`
	Rationale              string   `json:"rationale" jsonschema:"why the decision was made"`
	Context                string   `json:"context,omitempty" jsonschema:"situation that led to the decision"`
	AlternativesConsidered []string `json:"alternatives_considered,omitempty" jsonschema:"options that were rejected"`
	ReferencedFiles        []string `json:"referenced_files,omitempty" jsonschema:"files the decision concerns"`
	SourceSession          string   `json:"source_session,omitempty" jsonschema:"session the decision came from"`
}

// SaveErrorSolutionInput is the input schema for the save error solution tool.
type SaveErrorSolutionInput struct {
	Error           string   `json:"error" jsonschema:"the error message or symptom"`
	Solution        string   `json:"solution" jsonschema:"what fixed it"`
	Context         string   `json:"context,omitempty" jsonschema:"when the error shows up"`
	ReferencedFiles []string `json:"referenced_files,omitempty" jsonschema:"files involved in the fix"`
	SourceSession   string   `json:"source_session,omitempty" jsonschema:"session the fix came from"`
}

// SaveInsightInput is the input schema for the save insight tool.
type SaveInsightInput struct {
	Insight         string   `json:"insight" jsonschema:"the insight to remember"`
	Context         string   `json:"context,omitempty" jsonschema:"where the insight applies"`
	ReferencedFiles []string `json:"referenced_files,omitempty" jsonschema:"related files"`
	SourceSession   string   `json:"source_session,omitempty" jsonschema:"session the insight came from"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Full bool `json:"full,omitempty" jsonschema:"ignore checkpoints and re-extract everything"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	RunID            string                `json:"run_id"`
	Full             bool                  `json:"full"`
	SourcesProcessed int                   `json:"sources_processed"`
	ItemsProcessed   int                   `json:"items_processed"`
	PerSource        []IngestSourceSummary `json:"per_source,omitempty"`
	DurationMS       int64                 `json:"duration_ms"`
}

// IngestSourceSummary is one source's item count.
type IngestSourceSummary struct {
	Source string `json:"source"`
	Items  int    `json:"items"`
}

// SourcesInput is the input schema for the sources tool.
type SourcesInput struct{}

// SourcesOutput is the output schema for the sources tool.
type SourcesOutput struct {
	Sources []SourceInfo `json:"sources"`
}

// SourceInfo describes one registered source.
type SourceInfo struct {
	Name          string   `json:"name"`
	Available     bool     `json:"available"`
	StorePaths    []string `json:"store_paths,omitempty"`
	LastTimestamp string   `json:"last_timestamp,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "xtctx_search",
		Description: "Search past AI coding conversations and saved project knowledge",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "xtctx_project_knowledge",
		Description: "List the project's decisions, error solutions, insights, conventions and gotchas",
	}, s.handleProjectKnowledge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "xtctx_get_knowledge",
		Description: "Fetch one knowledge record by id",
	}, s.handleGetKnowledge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "xtctx_save_decision",
		Description: "Record an architectural or implementation decision with its rationale",
	}, s.handleSaveDecision)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "xtctx_save_error_solution",
		Description: "Record an error and the fix that resolved it",
	}, s.handleSaveErrorSolution)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "xtctx_save_insight",
		Description: "Record a project insight worth remembering across sessions",
	}, s.handleSaveInsight)

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "xtctx_ingest",
			Description: "Harvest new conversation history from the installed AI tools now",
		}, s.handleIngest)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "xtctx_sources",
			Description: "Show which AI tools were detected and how far each has been ingested",
		}, s.handleSources)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	format, err := parseFormat(input.Format)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	limit := input.Limit
	opts := domain.SearchOptions{
		Table: input.Table,
		Mode:  domain.SearchMode(strings.ToLower(strings.TrimSpace(input.Mode))),
		Limit: limit,
	}
	if len(input.SourceFilter) > 0 {
		if limit <= 0 {
			limit = s.ports.searchLimit()
		}
		opts.Limit = limit * filterOverfetch
	}

	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{Query: input.Query, Results: make([]SearchHit, 0, len(results))}
	for i := range results {
		hit := toSearchHit(&results[i])
		if len(input.SourceFilter) > 0 && !slices.Contains(input.SourceFilter, hit.SourceTool) {
			continue
		}
		output.Results = append(output.Results, hit)
		if limit > 0 && len(output.Results) == limit {
			break
		}
	}
	output.Count = len(output.Results)

	if format == formatJSON {
		return nil, output, nil
	}
	return textResult(renderSearch(output)), output, nil
}

func toSearchHit(r *domain.SearchResult) SearchHit {
	hit := SearchHit{ID: r.ID, Text: r.Text, Score: r.Score}

	var meta hitMetadata
	if r.Metadata == "" || json.Unmarshal([]byte(r.Metadata), &meta) != nil {
		return hit
	}
	hit.SourceTool = meta.SourceTool
	hit.Session = meta.SourceSession
	hit.Role = meta.Role
	hit.Timestamp = meta.Timestamp
	if hit.Timestamp == "" {
		hit.Timestamp = meta.CreatedAt
	}
	hit.Title = meta.Title
	hit.Type = meta.Type
	hit.Files = meta.ReferencedFiles
	return hit
}

// handleProjectKnowledge handles the project knowledge tool invocation.
func (s *Server) handleProjectKnowledge(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input KnowledgeListInput,
) (*mcp.CallToolResult, KnowledgeListOutput, error) {
	format, err := parseFormat(input.Format)
	if err != nil {
		return nil, KnowledgeListOutput{}, err
	}

	kt := strings.ToLower(strings.TrimSpace(input.Type))
	if kt == "" {
		kt = "all"
	}

	records, err := s.ports.Knowledge.List(ctx, domain.KnowledgeType(kt), input.Query)
	if err != nil {
		return nil, KnowledgeListOutput{}, err
	}

	output := KnowledgeListOutput{Type: kt, Records: records, Count: len(records)}
	if output.Records == nil {
		output.Records = []domain.KnowledgeRecord{}
	}

	if format == formatJSON {
		return nil, output, nil
	}
	return textResult(renderKnowledgeList(output, input.Query)), output, nil
}

// handleGetKnowledge handles the get knowledge tool invocation.
func (s *Server) handleGetKnowledge(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetKnowledgeInput,
) (*mcp.CallToolResult, domain.KnowledgeRecord, error) {
	format, err := parseFormat(input.Format)
	if err != nil {
		return nil, domain.KnowledgeRecord{}, err
	}

	rec, err := s.ports.Knowledge.Get(ctx, input.ID)
	if err != nil {
		return nil, domain.KnowledgeRecord{}, err
	}

	if format == formatJSON {
		return nil, *rec, nil
	}
	return textResult(renderRecord(rec)), *rec, nil
}

// handleSaveDecision handles the save decision tool invocation.
func (s *Server) handleSaveDecision(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveDecisionInput,
) (*mcp.CallToolResult, domain.WriteResult, error) {
	if err := required("title", input.Title, "rationale", input.Rationale); err != nil {
		return nil, domain.WriteResult{}, err
	}

	result, err := s.ports.Knowledge.SaveDecision(ctx, driving.DecisionInput{
		Title:                  input.Title,
		Rationale:              input.Rationale,
		Context:                input.Context,
		AlternativesConsidered: input.AlternativesConsidered,
		ReferencedFiles:        input.ReferencedFiles,
		SourceSession:          input.SourceSession,
	})
	return writeResult(result, err)
}

// handleSaveErrorSolution handles the save error solution tool invocation.
func (s *Server) handleSaveErrorSolution(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveErrorSolutionInput,
) (*mcp.CallToolResult, domain.WriteResult, error) {
	if err := required("error", input.Error, "solution", input.Solution); err != nil {
		return nil, domain.WriteResult{}, err
	}

	result, err := s.ports.Knowledge.SaveErrorSolution(ctx, driving.ErrorSolutionInput{
		Error:           input.Error,
		Solution:        input.Solution,
		Context:         input.Context,
		ReferencedFiles: input.ReferencedFiles,
		SourceSession:   input.SourceSession,
	})
	return writeResult(result, err)
}

// handleSaveInsight handles the save insight tool invocation.
func (s *Server) handleSaveInsight(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveInsightInput,
) (*mcp.CallToolResult, domain.WriteResult, error) {
	if err := required("insight", input.Insight); err != nil {
		return nil, domain.WriteResult{}, err
	}

	result, err := s.ports.Knowledge.SaveInsight(ctx, driving.InsightInput{
		Insight:         input.Insight,
		Context:         input.Context,
		ReferencedFiles: input.ReferencedFiles,
		SourceSession:   input.SourceSession,
	})
	return writeResult(result, err)
}

func writeResult(result domain.WriteResult, err error) (*mcp.CallToolResult, domain.WriteResult, error) {
	if err != nil {
		return nil, domain.WriteResult{}, err
	}
	return textResult(renderWriteResult(result)), result, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, IngestOutput{}, ErrIngestionUnavailable
	}

	run := s.ports.Ingestion.RunCycle
	if input.Full {
		run = s.ports.Ingestion.FullSync
	}
	result, err := run(ctx)
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("ingestion cycle: %w", err)
	}

	output := IngestOutput{
		RunID:            result.RunID,
		Full:             result.Full,
		SourcesProcessed: result.SourcesProcessed,
		ItemsProcessed:   result.ItemsProcessed,
		DurationMS:       result.Duration().Milliseconds(),
	}
	for _, ps := range result.PerSource {
		output.PerSource = append(output.PerSource, IngestSourceSummary(ps))
	}
	return nil, output, nil
}

// handleSources handles the sources tool invocation.
func (s *Server) handleSources(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SourcesInput,
) (*mcp.CallToolResult, SourcesOutput, error) {
	infos, err := s.sourceInfos(ctx)
	if err != nil {
		return nil, SourcesOutput{}, err
	}
	return nil, SourcesOutput{Sources: infos}, nil
}

func (s *Server) sourceInfos(ctx context.Context) ([]SourceInfo, error) {
	if s.ports.Ingestion == nil {
		return nil, ErrIngestionUnavailable
	}

	statuses, err := s.ports.Ingestion.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	infos := make([]SourceInfo, len(statuses))
	for i, st := range statuses {
		infos[i] = SourceInfo{
			Name:       st.Name,
			Available:  st.Available,
			StorePaths: st.StorePaths,
		}
		if !st.Checkpoint.IsZero() {
			infos[i].LastTimestamp = domain.FormatTimestamp(st.Checkpoint.LastTimestamp)
		}
	}
	return infos, nil
}

func parseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatMarkdown:
		return formatMarkdown, nil
	case formatJSON:
		return formatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", domain.ErrInvalidInput, format)
	}
}

// required checks name/value pairs and reports the first blank one.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, pairs[i])
		}
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
