package domain

import "time"

// Checkpoint is the persisted extraction watermark for one source.
// Items with a timestamp at or before LastTimestamp are considered processed.
type Checkpoint struct {
	// Source is the adapter name the checkpoint belongs to.
	Source string `json:"source"`

	// LastTimestamp is the maximum timestamp among processed items.
	LastTimestamp time.Time `json:"last_timestamp"`

	// LastRowID is an optional adapter cursor for row-based stores.
	LastRowID int64 `json:"last_row_id,omitempty"`

	// LastOffset is an optional adapter cursor for append-only files.
	LastOffset int64 `json:"last_offset,omitempty"`

	// Checksum is an optional adapter fingerprint of the store.
	Checksum string `json:"checksum,omitempty"`
}

// IsZero reports whether the checkpoint has never been advanced.
func (c *Checkpoint) IsZero() bool {
	return c == nil || c.LastTimestamp.IsZero()
}

// Advance returns a copy of c whose LastTimestamp is the later of the
// current watermark and ts. Adapter cursor fields are preserved.
func (c *Checkpoint) Advance(source string, ts time.Time) Checkpoint {
	next := Checkpoint{Source: source}
	if c != nil {
		next = *c
		next.Source = source
	}
	if ts.After(next.LastTimestamp) {
		next.LastTimestamp = ts
	}
	return next
}

// MaxTimestamp returns the latest timestamp among items.
// Adapters are not required to yield in order, so this scans all of them.
func MaxTimestamp(items []Item) time.Time {
	var latest time.Time
	for i := range items {
		if items[i].Timestamp.After(latest) {
			latest = items[i].Timestamp
		}
	}
	return latest
}
