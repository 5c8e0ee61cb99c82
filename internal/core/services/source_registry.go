package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// SourceRegistry holds source adapters in registration order.
// Cycles process sources in this order.
type SourceRegistry struct {
	mu       sync.RWMutex
	adapters []driven.SourceAdapter
}

// NewSourceRegistry creates a registry with the given adapters.
func NewSourceRegistry(adapters ...driven.SourceAdapter) *SourceRegistry {
	r := &SourceRegistry{}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			logger.Warn("source registry: %v", err)
		}
	}
	return r
}

// Register appends an adapter. Names must be unique.
func (r *SourceRegistry) Register(adapter driven.SourceAdapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.adapters {
		if existing.Name() == adapter.Name() {
			return fmt.Errorf("register source %s: %w", adapter.Name(), domain.ErrAlreadyExists)
		}
	}
	r.adapters = append(r.adapters, adapter)
	return nil
}

// All returns every registered adapter in registration order.
func (r *SourceRegistry) All() []driven.SourceAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]driven.SourceAdapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Get returns the adapter with the given name.
func (r *SourceRegistry) Get(name string) (driven.SourceAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.adapters {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// DetectAvailable returns the adapters whose availability probe succeeds,
// preserving registration order.
func (r *SourceRegistry) DetectAvailable(ctx context.Context) []driven.SourceAdapter {
	var available []driven.SourceAdapter
	for _, a := range r.All() {
		if a.Detect(ctx) {
			available = append(available, a)
		} else {
			logger.Debug("source %s not available, skipping", a.Name())
		}
	}
	return available
}

// StorePaths returns the union of every adapter's store paths, deduplicated
// in first-seen order.
func (r *SourceRegistry) StorePaths() []string {
	var paths []string
	for _, a := range r.All() {
		paths = append(paths, a.StorePaths()...)
	}
	return dedupeStrings(paths)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
