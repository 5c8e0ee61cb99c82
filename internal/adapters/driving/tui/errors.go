package tui

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("tui: search service is required")

// ErrMissingKnowledgeService is returned when the knowledge service is not provided.
var ErrMissingKnowledgeService = errors.New("tui: knowledge service is required")

// ErrInvalidPorts is returned when no ports are supplied at all.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
