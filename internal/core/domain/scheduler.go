package domain

import "time"

// Defaults for the change-triggered scheduler.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultDebounce     = 300 * time.Millisecond
	DefaultCallTimeout  = 2 * time.Minute
)

// RetryPolicy bounds how long daemon startup retries the eager cycle.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// MinDelay is the wait before the first retry.
	MinDelay time.Duration

	// MaxDelay caps the wait between retries.
	MaxDelay time.Duration

	// Factor multiplies the delay after each failed attempt.
	Factor float64
}

// DefaultRetryPolicy returns the startup retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		MinDelay: 250 * time.Millisecond,
		MaxDelay: 2 * time.Second,
		Factor:   2,
	}
}

// DaemonConfig configures the ingestion daemon.
type DaemonConfig struct {
	// Interval between periodic cycles. Zero disables the periodic path.
	Interval time.Duration

	// Debounce is the quiet window the watcher waits for before triggering.
	Debounce time.Duration

	// WatchPaths are watched in addition to the sources' store paths.
	WatchPaths []string

	// ExcludePatterns are glob patterns ignored by the watcher.
	ExcludePatterns []string

	// Startup bounds retries of the eager cycle run by Start.
	Startup RetryPolicy
}

// DefaultDaemonConfig returns the default daemon configuration.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		Interval: DefaultPollInterval,
		Debounce: DefaultDebounce,
		Startup:  DefaultRetryPolicy(),
	}
}
