package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

const (
	uriScheme = "xtctx://"

	mimeJSON     = "application/json"
	mimeMarkdown = "text/markdown"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "knowledge",
		Name:        "knowledge",
		Description: "Active knowledge records of the project, newest first",
		MIMEType:    mimeJSON,
	}, s.handleKnowledgeResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "knowledge/{id}",
		Name:        "knowledge-record",
		Description: "One knowledge record rendered as markdown",
		MIMEType:    mimeMarkdown,
	}, s.handleKnowledgeRecordResource)

	if s.ports.Ingestion != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "sources",
			Name:        "sources",
			Description: "Detected AI tools and their ingestion checkpoints",
			MIMEType:    mimeJSON,
		}, s.handleSourcesResource)
	}
}

// handleKnowledgeResource lists records that have not been superseded.
func (s *Server) handleKnowledgeResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.Knowledge.List(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("listing knowledge: %w", err)
	}

	type recordInfo struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		Title     string `json:"title"`
		CreatedAt string `json:"created_at"`
		URI       string `json:"uri"`
	}

	infos := make([]recordInfo, 0, len(records))
	for i := range records {
		if !records[i].IsActive() {
			continue
		}
		infos = append(infos, recordInfo{
			ID:        records[i].ID,
			Type:      string(records[i].Type),
			Title:     records[i].Title,
			CreatedAt: domain.FormatTimestamp(records[i].CreatedAt),
			URI:       uriScheme + "knowledge/" + records[i].ID,
		})
	}

	return jsonContents(req.Params.URI, infos)
}

// handleKnowledgeRecordResource returns one record by the id in its URI.
func (s *Server) handleKnowledgeRecordResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractKnowledgeID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rec, err := s.ports.Knowledge.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting knowledge record: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: mimeMarkdown,
			Text:     renderRecord(rec),
		}},
	}, nil
}

// handleSourcesResource returns the status of every registered source.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos, err := s.sourceInfos(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, infos)
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractKnowledgeID extracts the record ID from a URI like xtctx://knowledge/{id}.
func extractKnowledgeID(uri string) string {
	const prefix = uriScheme + "knowledge/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
