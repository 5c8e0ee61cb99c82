package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Ensure LazyEmbeddingService implements the interface.
var _ driven.EmbeddingService = (*LazyEmbeddingService)(nil)

// EmbeddingInitFunc creates the underlying embedding service.
type EmbeddingInitFunc func(ctx context.Context) (driven.EmbeddingService, error)

// lazyInit is one in-flight or completed initialisation.
type lazyInit struct {
	done    chan struct{}
	service driven.EmbeddingService
	err     error
}

// LazyEmbeddingService defers creating an embedding service until first use.
// The first caller starts initialisation; every concurrent caller waits on
// that same attempt. A failed attempt is not cached, so the next call
// retries.
type LazyEmbeddingService struct {
	init       EmbeddingInitFunc
	dimensions int
	model      string

	mu      sync.Mutex
	current *lazyInit
}

// NewLazyEmbeddingService wraps init. dimensions and model are reported
// before initialisation has happened.
func NewLazyEmbeddingService(init EmbeddingInitFunc, dimensions int, model string) *LazyEmbeddingService {
	return &LazyEmbeddingService{
		init:       init,
		dimensions: dimensions,
		model:      model,
	}
}

// service returns the initialised service, initialising it if needed.
func (l *LazyEmbeddingService) service(ctx context.Context) (driven.EmbeddingService, error) {
	l.mu.Lock()
	attempt := l.current
	if attempt == nil {
		attempt = &lazyInit{done: make(chan struct{})}
		l.current = attempt
		go l.run(attempt)
	}
	l.mu.Unlock()

	select {
	case <-attempt.done:
		return attempt.service, attempt.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run performs one initialisation. It uses a background context so a
// cancelled first caller does not fail the attempt for everyone waiting.
func (l *LazyEmbeddingService) run(attempt *lazyInit) {
	logger.Debug("Initialising embedding service %s", l.model)
	attempt.service, attempt.err = l.init(context.Background())

	if attempt.err != nil {
		logger.Warn("Embedding service initialisation failed: %v", attempt.err)
		l.mu.Lock()
		if l.current == attempt {
			l.current = nil
		}
		l.mu.Unlock()
	}
	close(attempt.done)
}

// Embed generates a vector embedding, initialising the service if needed.
func (l *LazyEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	svc, err := l.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Embed(ctx, text)
}

// EmbedBatch generates embeddings, initialising the service if needed.
func (l *LazyEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	svc, err := l.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.EmbedBatch(ctx, texts)
}

// Dimensions returns the configured embedding size.
func (l *LazyEmbeddingService) Dimensions() int {
	return l.dimensions
}

// ModelName returns the configured model name.
func (l *LazyEmbeddingService) ModelName() string {
	return l.model
}

// Ping initialises the service and pings it.
func (l *LazyEmbeddingService) Ping(ctx context.Context) error {
	svc, err := l.service(ctx)
	if err != nil {
		return err
	}
	return svc.Ping(ctx)
}

// Close closes the underlying service if it was initialised.
func (l *LazyEmbeddingService) Close() error {
	l.mu.Lock()
	attempt := l.current
	l.mu.Unlock()

	if attempt == nil {
		return nil
	}
	<-attempt.done
	if attempt.err != nil || attempt.service == nil {
		return nil
	}
	return attempt.service.Close()
}
