// Package mcp provides an MCP (Model Context Protocol) server adapter for xtctx.
// It lets AI coding assistants search harvested conversation context and
// read or record project knowledge.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingKnowledgeService is returned when the knowledge service is not provided.
	ErrMissingKnowledgeService = errors.New("mcp: knowledge service is required")

	// ErrIngestionUnavailable is returned by ingestion tools when no coordinator is wired.
	ErrIngestionUnavailable = errors.New("mcp: ingestion is not available in this server")
)
