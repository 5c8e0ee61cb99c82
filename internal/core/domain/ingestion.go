package domain

import "time"

// SourceResult summarises one source's contribution to a cycle.
type SourceResult struct {
	Source string
	Items  int
}

// CycleResult is the ephemeral summary of one coordinator pass.
type CycleResult struct {
	// RunID correlates log lines from the same cycle.
	RunID string

	// Full is true for a full resync.
	Full bool

	// SourcesProcessed counts sources that yielded at least one item.
	SourcesProcessed int

	// ItemsProcessed counts items embedded and upserted.
	ItemsProcessed int

	// PerSource lists per-source counts in processing order.
	PerSource []SourceResult

	StartedAt time.Time
	EndedAt   time.Time
}

// Duration returns how long the cycle took.
func (r CycleResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SourceStatus reports a registered source's availability.
type SourceStatus struct {
	Name       string
	Available  bool
	StorePaths []string
	Checkpoint *Checkpoint
}
