package driven

import "context"

// EmbeddingService turns text into fixed-length vectors. Records and queries
// must be embedded by the same model for cosine scores to mean anything.
//
// Adapters: local feature hashing (the default, no model server), Ollama and
// OpenAI-compatible HTTP endpoints.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping checks the provider is reachable without embedding anything.
	Ping(ctx context.Context) error

	Close() error
}
