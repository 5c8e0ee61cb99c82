package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSearchMode indicates an unknown search mode.
	ErrInvalidSearchMode = errors.New("invalid search mode")

	// ErrInvalidKnowledgeType indicates an unknown knowledge type.
	ErrInvalidKnowledgeType = errors.New("invalid knowledge type")

	// ErrUnsupportedProvider indicates an unknown embedding provider.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or failed to initialise. Semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the record store is not configured.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
