package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Ensure Daemon implements the interface.
var _ driving.IngestionDaemon = (*Daemon)(nil)

// Daemon keeps the record store fresh. It composes the coordinator with a
// periodic timer and a filesystem watcher; both call the coordinator's
// Trigger, so they share one single-flight guard.
type Daemon struct {
	config      domain.DaemonConfig
	coordinator driving.IngestionCoordinator
	watcher     driven.ChangeWatcher

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDaemon creates a daemon. The watcher is optional; without it the
// daemon only polls.
func NewDaemon(
	config domain.DaemonConfig,
	coordinator driving.IngestionCoordinator,
	watcher driven.ChangeWatcher,
) *Daemon {
	return &Daemon{
		config:      config,
		coordinator: coordinator,
		watcher:     watcher,
	}
}

// Start runs one eager cycle so data is fresh, then starts the timer and
// the watcher. The eager cycle is retried with exponential backoff; if every
// attempt fails, Start returns the error and the daemon stays stopped.
// Calling Start on a running daemon is a no-op.
//
// The background loops run until Stop is called or ctx is done.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	if err := d.eagerCycle(ctx); err != nil {
		return fmt.Errorf("initial ingestion: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.config.Interval > 0 {
		d.wg.Add(1)
		go d.tick(runCtx, d.config.Interval)
	}

	if d.watcher != nil {
		paths := dedupeStrings(append(d.coordinator.WatchPaths(), d.config.WatchPaths...))
		err := d.watcher.Start(runCtx, paths, func() {
			logger.Debug("daemon: change detected, triggering cycle")
			d.coordinator.Trigger(runCtx)
		})
		if err != nil {
			logger.Warn("daemon: watcher unavailable, polling only: %v", err)
		}
	}

	d.running = true
	logger.Info("daemon: started (interval=%s, debounce=%s)", d.config.Interval, d.config.Debounce)
	return nil
}

// Stop halts the timer and the watcher, cancels any pending debounce and
// waits for an in-flight triggered cycle to finish. A later Start is a
// full, fresh startup. Calling Stop twice is a no-op.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.cancel()

	var watchErr error
	if d.watcher != nil {
		watchErr = d.watcher.Stop()
	}
	d.mu.Unlock()

	d.wg.Wait()

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.coordinator.WaitIdle(waitCtx); err != nil {
		logger.Warn("daemon: in-flight cycle still running after stop: %v", err)
	}

	logger.Info("daemon: stopped")
	if watchErr != nil {
		return fmt.Errorf("stop watcher: %w", watchErr)
	}
	return nil
}

// Running reports whether the daemon is started.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Daemon) tick(ctx context.Context, interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.coordinator.Trigger(ctx)
		}
	}
}

// eagerCycle runs the startup cycle under the configured retry policy.
func (d *Daemon) eagerCycle(ctx context.Context) error {
	operation := func() error {
		result, err := d.coordinator.RunCycle(ctx)
		if err != nil {
			return err
		}
		logger.Info("daemon: initial cycle ingested %d items from %d sources",
			result.ItemsProcessed, result.SourcesProcessed)
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("daemon: initial cycle failed, retrying in %s: %v", wait, err)
	}

	return backoff.RetryNotify(operation, newBackOff(ctx, d.config.Startup), notify)
}

func newBackOff(ctx context.Context, policy domain.RetryPolicy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.MinDelay
	exp.MaxInterval = policy.MaxDelay
	exp.Multiplier = policy.Factor
	if exp.Multiplier < 1 {
		exp.Multiplier = 1
	}
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0

	retries := policy.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}
