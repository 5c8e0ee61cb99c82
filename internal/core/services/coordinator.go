package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Ensure Coordinator implements the interface.
var _ driving.IngestionCoordinator = (*Coordinator)(nil)

// Coordinator drives extraction passes over all available sources: it pulls
// new items, embeds them in one batch per source, upserts the records and
// advances each source's checkpoint.
//
// No two cycles ever run at the same time. Direct RunCycle and FullSync
// calls are serialised, and Trigger coalesces bursts into at most one
// queued rerun.
type Coordinator struct {
	registry         *SourceRegistry
	embeddingService driven.EmbeddingService
	recordStore      driven.RecordStore

	table       string
	callTimeout time.Duration

	cycleMu sync.Mutex
	flight  *singleFlight
}

// NewCoordinator creates a coordinator writing to the context table.
func NewCoordinator(
	registry *SourceRegistry,
	embeddingService driven.EmbeddingService,
	recordStore driven.RecordStore,
) *Coordinator {
	return &Coordinator{
		registry:         registry,
		embeddingService: embeddingService,
		recordStore:      recordStore,
		table:            domain.TableContext,
		callTimeout:      domain.DefaultCallTimeout,
		flight:           newSingleFlight(),
	}
}

// SetTable sets the record table harvested items are written to.
func (c *Coordinator) SetTable(table string) {
	if table != "" {
		c.table = table
	}
}

// SetCallTimeout bounds each embedding and store call. Zero disables the bound.
func (c *Coordinator) SetCallTimeout(d time.Duration) {
	c.callTimeout = d
}

// RunCycle performs one incremental pass over all available sources.
func (c *Coordinator) RunCycle(ctx context.Context) (domain.CycleResult, error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	return c.run(ctx, false)
}

// FullSync performs one pass that re-extracts everything, ignoring checkpoints.
func (c *Coordinator) FullSync(ctx context.Context) (domain.CycleResult, error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	return c.run(ctx, true)
}

// Trigger requests an incremental cycle in the background. If a triggered
// cycle is already running, the request is coalesced into a single rerun
// that starts as soon as the current one finishes. A coalesced rerun uses
// the context of the trigger that started the burst.
func (c *Coordinator) Trigger(ctx context.Context) {
	started := c.flight.trigger(func() {
		if ctx.Err() != nil {
			return
		}
		result, err := c.RunCycle(ctx)
		if err != nil {
			logger.Error("ingestion cycle %s failed: %v", result.RunID, err)
			return
		}
		logger.Info("ingestion cycle %s: %d items from %d sources in %s",
			result.RunID, result.ItemsProcessed, result.SourcesProcessed, result.Duration().Round(time.Millisecond))
	})
	if !started {
		logger.Debug("ingestion cycle in flight, rerun requested")
	}
}

// WaitIdle blocks until no triggered cycle is running or queued.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	return c.flight.wait(ctx)
}

// WatchPaths returns the sources' store paths.
func (c *Coordinator) WatchPaths() []string {
	return c.registry.StorePaths()
}

// Sources reports each registered source's availability and checkpoint.
func (c *Coordinator) Sources(ctx context.Context) ([]domain.SourceStatus, error) {
	adapters := c.registry.All()
	statuses := make([]domain.SourceStatus, 0, len(adapters))
	for _, a := range adapters {
		cp, err := a.LoadCheckpoint(ctx)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint for %s: %w", a.Name(), err)
		}
		statuses = append(statuses, domain.SourceStatus{
			Name:       a.Name(),
			Available:  a.Detect(ctx),
			StorePaths: a.StorePaths(),
			Checkpoint: cp,
		})
	}
	return statuses, nil
}

// run executes one pass. The caller must hold cycleMu.
//
// Sources are processed strictly in sequence. A failure on one source stops
// the pass: earlier sources keep their advanced checkpoints, the failing
// source's checkpoint is left alone and later sources are not attempted.
func (c *Coordinator) run(ctx context.Context, full bool) (domain.CycleResult, error) {
	result := domain.CycleResult{
		RunID:     uuid.NewString(),
		Full:      full,
		StartedAt: time.Now(),
	}

	if c.embeddingService == nil {
		return result, domain.ErrEmbeddingUnavailable
	}
	if c.recordStore == nil {
		return result, domain.ErrStoreUnavailable
	}

	logger.Section("Ingestion Cycle")
	logger.Debug("Run %s (full=%t, table=%s)", result.RunID, full, c.table)

	for _, adapter := range c.registry.DetectAvailable(ctx) {
		n, err := c.processSource(ctx, adapter, full)
		if err != nil {
			result.EndedAt = time.Now()
			return result, fmt.Errorf("source %s: %w", adapter.Name(), err)
		}

		logger.Debug("Source %s: %d items", adapter.Name(), n)
		if n == 0 {
			continue
		}
		result.SourcesProcessed++
		result.ItemsProcessed += n
		result.PerSource = append(result.PerSource, domain.SourceResult{Source: adapter.Name(), Items: n})
	}

	result.EndedAt = time.Now()
	logger.Info("Cycle %s complete: %d items from %d sources", result.RunID, result.ItemsProcessed, result.SourcesProcessed)
	return result, nil
}

// processSource extracts, embeds and stores one source's items, then
// advances its checkpoint to the maximum item timestamp.
func (c *Coordinator) processSource(ctx context.Context, adapter driven.SourceAdapter, full bool) (int, error) {
	checkpoint, err := adapter.LoadCheckpoint(ctx)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}

	var seq driven.ItemSeq
	if full {
		seq = adapter.ExtractAll(ctx)
	} else {
		seq = adapter.ExtractSince(ctx, checkpoint)
	}

	items, err := collectItems(seq)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	texts := make([]string, len(items))
	for i := range items {
		texts[i] = items[i].Content
	}

	vectors, err := c.embedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d items: %w", len(items), err)
	}
	if len(vectors) != len(items) {
		return 0, fmt.Errorf("embed %d items: got %d vectors", len(items), len(vectors))
	}

	records := make([]domain.Record, len(items))
	for i := range items {
		rec, err := domain.NewRecord(items[i], vectors[i])
		if err != nil {
			return 0, fmt.Errorf("build record: %w", err)
		}
		records[i] = rec
	}

	if err := c.upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert records: %w", err)
	}

	next := checkpoint.Advance(adapter.Name(), domain.MaxTimestamp(items))
	if err := adapter.SaveCheckpoint(ctx, next); err != nil {
		return 0, fmt.Errorf("save checkpoint: %w", err)
	}

	return len(items), nil
}

func (c *Coordinator) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	vectors, err := c.embeddingService.EmbedBatch(callCtx, texts)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("embedding call exceeded %s: %w", c.callTimeout, context.DeadlineExceeded)
	}
	return vectors, err
}

func (c *Coordinator) upsert(ctx context.Context, records []domain.Record) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	err := c.recordStore.Upsert(callCtx, c.table, records)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("store call exceeded %s: %w", c.callTimeout, context.DeadlineExceeded)
	}
	return err
}

func (c *Coordinator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// collectItems materialises a sequence so a cycle works on a finite snapshot.
func collectItems(seq driven.ItemSeq) ([]domain.Item, error) {
	var items []domain.Item
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
