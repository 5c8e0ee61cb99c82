// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	localembed "github.com/custodia-labs/xtctx/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/xtctx/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/xtctx/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the embedding service for settings without
// contacting the provider.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		if settings.Provider.RequiresAPIKey() {
			return nil, fmt.Errorf("%w: %s requires an API key (set embedding.api_key or OPENAI_API_KEY)",
				domain.ErrEmbeddingUnavailable, settings.Provider)
		}
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, settings.Provider)
	}

	switch settings.Provider {
	case domain.EmbeddingProviderLocal:
		return localembed.NewEmbeddingService(settings.Model, Dimensions(settings)), nil

	case domain.EmbeddingProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        Dimensions(settings),
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.EmbeddingProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, settings.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and pings it.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). Check [embedding] in .xtctx/config.toml",
			domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}

	return svc, nil
}

// Initializer returns a function suitable for lazy construction: each call
// creates and validates a fresh service.
func Initializer(settings domain.EmbeddingSettings) func(context.Context) (driven.EmbeddingService, error) {
	return func(ctx context.Context) (driven.EmbeddingService, error) {
		return CreateAndValidateEmbeddingService(ctx, settings)
	}
}

// Dimensions returns the configured vector size, falling back to the known
// size of the model and then to the provider default.
func Dimensions(settings domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	if d, ok := domain.EmbeddingDimensions()[settings.Model]; ok {
		return d
	}
	switch settings.Provider {
	case domain.EmbeddingProviderOllama:
		return ollamaembed.DefaultDimensions
	case domain.EmbeddingProviderOpenAI:
		return openaiembed.DefaultDimensions
	default:
		return localembed.DefaultDimensions
	}
}
