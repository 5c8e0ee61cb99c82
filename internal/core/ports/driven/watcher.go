package driven

import "context"

// ChangeWatcher observes filesystem paths and reports debounced changes.
type ChangeWatcher interface {
	// Start begins watching paths. onChange is invoked once per quiet
	// debounce window that followed at least one create, write, remove
	// or rename event. Paths that do not exist are skipped.
	Start(ctx context.Context, paths []string, onChange func()) error

	// Stop cancels any pending debounce and releases filesystem handles.
	// It is safe to call more than once.
	Stop() error
}
