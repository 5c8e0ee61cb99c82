package driving

import (
	"context"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// IngestionCoordinator drives extraction passes over all available sources.
type IngestionCoordinator interface {
	// RunCycle performs one incremental pass.
	RunCycle(ctx context.Context) (domain.CycleResult, error)

	// FullSync performs one pass that ignores checkpoints.
	FullSync(ctx context.Context) (domain.CycleResult, error)

	// Trigger requests a cycle. If one is already running, at most one
	// further cycle is queued; extra triggers are coalesced into it.
	Trigger(ctx context.Context)

	// WaitIdle blocks until no triggered cycle is running or queued.
	WaitIdle(ctx context.Context) error

	// WatchPaths lists the filesystem paths whose changes should trigger a cycle.
	WatchPaths() []string

	// Sources reports each registered source's availability and checkpoint.
	Sources(ctx context.Context) ([]domain.SourceStatus, error)
}

// IngestionDaemon keeps the store fresh by polling and watching sources.
type IngestionDaemon interface {
	// Start runs one eager cycle, then starts the timer and the watcher.
	// Calling Start on a running daemon is a no-op.
	Start(ctx context.Context) error

	// Stop halts the timer and the watcher. Calling Stop twice is a no-op.
	Stop() error

	// Running reports whether the daemon is started.
	Running() bool
}
