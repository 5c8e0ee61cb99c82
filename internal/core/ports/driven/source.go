package driven

import (
	"context"
	"iter"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// ItemSeq is a lazy, finite sequence of extracted items. A non-nil error
// ends the sequence; malformed records are skipped by the adapter and never
// surface here.
type ItemSeq = iter.Seq2[domain.Item, error]

// SourceAdapter extracts conversation items from one AI tool's local store.
type SourceAdapter interface {
	// Name returns the stable source name (e.g. "claude-code").
	Name() string

	// Detect is a cheap availability probe. It never fails; an unreadable
	// store reports false.
	Detect(ctx context.Context) bool

	// StorePaths lists filesystem paths the watcher should observe.
	StorePaths() []string

	// ExtractSince yields items strictly newer than the checkpoint.
	// A nil checkpoint yields everything.
	ExtractSince(ctx context.Context, checkpoint *domain.Checkpoint) ItemSeq

	// ExtractAll yields every item, ignoring any checkpoint.
	ExtractAll(ctx context.Context) ItemSeq

	// LoadCheckpoint returns the persisted checkpoint, or nil if none exists.
	LoadCheckpoint(ctx context.Context) (*domain.Checkpoint, error)

	// SaveCheckpoint persists the checkpoint.
	SaveCheckpoint(ctx context.Context, checkpoint domain.Checkpoint) error
}
