package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

// Base implements the name and checkpoint half of driven.SourceAdapter.
// Adapters embed it and add Detect, StorePaths and extraction.
type Base struct {
	name        string
	checkpoints driven.CheckpointStore
}

// NewBase creates a Base for the named source.
func NewBase(name string, checkpoints driven.CheckpointStore) Base {
	return Base{name: name, checkpoints: checkpoints}
}

// Name returns the source name.
func (b Base) Name() string {
	return b.name
}

// LoadCheckpoint returns the persisted checkpoint, or nil if none exists.
func (b Base) LoadCheckpoint(ctx context.Context) (*domain.Checkpoint, error) {
	if b.checkpoints == nil {
		return nil, nil
	}
	cp, err := b.checkpoints.Get(ctx, b.name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", b.name, err)
	}
	return cp, nil
}

// SaveCheckpoint persists the checkpoint under this source's name.
func (b Base) SaveCheckpoint(ctx context.Context, checkpoint domain.Checkpoint) error {
	if b.checkpoints == nil {
		return fmt.Errorf("save checkpoint %s: %w", b.name, domain.ErrStoreUnavailable)
	}
	checkpoint.Source = b.name
	if err := b.checkpoints.Save(ctx, checkpoint); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", b.name, err)
	}
	return nil
}

// Cutoff returns the watermark items must be strictly newer than.
func Cutoff(checkpoint *domain.Checkpoint) time.Time {
	if checkpoint == nil {
		return time.Time{}
	}
	return checkpoint.LastTimestamp
}

// NewItem builds an item with the token estimate filled in.
func NewItem(source, session string, ts time.Time, role domain.Role, content string, index int) domain.Item {
	return domain.Item{
		Source:    source,
		SessionID: session,
		Timestamp: ts,
		Role:      role,
		Content:   content,
		Metadata: domain.ItemMetadata{
			MessageIndex:  index,
			TokenEstimate: domain.EstimateTokens(content),
		},
	}
}

// Sequence adapts a push-style extractor into a driven.ItemSeq. emit
// reports false once the consumer stops; the extractor should then return.
// A non-nil extractor error is yielded as the final element.
func Sequence(ctx context.Context, extract func(ctx context.Context, emit func(domain.Item) bool) error) driven.ItemSeq {
	return func(yield func(domain.Item, error) bool) {
		stopped := false
		err := extract(ctx, func(item domain.Item) bool {
			if !yield(item, nil) {
				stopped = true
			}
			return !stopped
		})
		if err != nil && !stopped {
			yield(domain.Item{}, err)
		}
	}
}
