package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// RecordIDLength is the number of hex characters kept from the content hash.
const RecordIDLength = 24

// TimestampLayout is the canonical UTC millisecond layout used in identifiers
// and serialised metadata.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Record is the persisted, searchable unit stored in a record table.
type Record struct {
	// ID is deterministic for the same underlying content.
	ID string

	// Text is the original content.
	Text string

	// Vector is the embedding of Text.
	Vector []float32

	// Metadata is the serialised metadata JSON.
	Metadata string
}

// RecordMetadata is the JSON shape stored in Record.Metadata for harvested items.
type RecordMetadata struct {
	SourceTool      string            `json:"source_tool"`
	SourceSession   string            `json:"source_session"`
	Role            string            `json:"role"`
	Timestamp       string            `json:"timestamp"`
	MessageIndex    int               `json:"message_index,omitempty"`
	TokenEstimate   int               `json:"token_estimate,omitempty"`
	ReferencedFiles []string          `json:"referenced_files,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// RecordID derives the identifier for an item as a truncated SHA-256 over
// source, session, timestamp, role and content. Re-ingesting the same item
// yields the same identifier, so an upsert overwrites instead of duplicating.
func RecordID(item Item) string {
	parts := []string{
		item.Source,
		item.SessionID,
		FormatTimestamp(item.Timestamp),
		string(item.Role),
		item.Content,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:RecordIDLength]
}

// FormatTimestamp renders t in the canonical UTC millisecond layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewRecord builds the record for an item and its embedding.
func NewRecord(item Item, vector []float32) (Record, error) {
	meta := RecordMetadata{
		SourceTool:      item.Source,
		SourceSession:   item.SessionID,
		Role:            string(item.Role),
		Timestamp:       FormatTimestamp(item.Timestamp),
		MessageIndex:    item.Metadata.MessageIndex,
		TokenEstimate:   item.Metadata.TokenEstimate,
		ReferencedFiles: item.Metadata.ReferencedFiles,
		Extra:           item.Metadata.Extra,
	}
	if meta.TokenEstimate == 0 {
		meta.TokenEstimate = EstimateTokens(item.Content)
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:       RecordID(item),
		Text:     item.Content,
		Vector:   vector,
		Metadata: string(raw),
	}, nil
}

// ScoredRecord is a store search hit with its native relevance score.
// Higher is better for both keyword and vector hits.
type ScoredRecord struct {
	Record
	Score float64
}
