package services

import (
	"context"
	"sync"
)

// singleFlight runs at most one operation at a time. A trigger that arrives
// while a run is in flight sets a rerun flag instead of starting a second
// run; when the run finishes, one more run starts if the flag is set.
// Any number of triggers during a run collapse into that single rerun.
type singleFlight struct {
	mu      sync.Mutex
	running bool
	rerun   bool
	idle    chan struct{}
}

func newSingleFlight() *singleFlight {
	idle := make(chan struct{})
	close(idle)
	return &singleFlight{idle: idle}
}

// trigger starts fn in the background, or requests a rerun if fn is
// already running. It reports whether a new run was started.
func (g *singleFlight) trigger(fn func()) bool {
	g.mu.Lock()
	if g.running {
		g.rerun = true
		g.mu.Unlock()
		return false
	}
	g.running = true
	g.idle = make(chan struct{})
	g.mu.Unlock()

	go g.loop(fn)
	return true
}

func (g *singleFlight) loop(fn func()) {
	for {
		fn()

		g.mu.Lock()
		if !g.rerun {
			g.running = false
			close(g.idle)
			g.mu.Unlock()
			return
		}
		g.rerun = false
		g.mu.Unlock()
	}
}

// inFlight reports whether a run is active.
func (g *singleFlight) inFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// wait blocks until no run is active, including any coalesced rerun.
func (g *singleFlight) wait(ctx context.Context) error {
	g.mu.Lock()
	idle := g.idle
	g.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
