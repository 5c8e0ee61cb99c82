package list

import (
	"encoding/json"
	"strings"
)

// Meta holds the display fields common to context and knowledge hits.
// Context hits carry SourceTool, SourceSession, Role and Timestamp;
// knowledge hits carry Type, Title and CreatedAt.
type Meta struct {
	SourceTool      string   `json:"source_tool"`
	SourceSession   string   `json:"source_session"`
	Role            string   `json:"role"`
	Timestamp       string   `json:"timestamp"`
	ReferencedFiles []string `json:"referenced_files"`
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	CreatedAt       string   `json:"created_at"`
}

// DecodeMeta parses serialised record metadata. Malformed input yields
// an empty Meta.
func DecodeMeta(raw string) Meta {
	var m Meta
	if raw == "" {
		return m
	}
	_ = json.Unmarshal([]byte(raw), &m)
	return m
}

// Heading is the one-line label for a hit: the knowledge title, else
// "tool / role", else the fallback.
func (m Meta) Heading(fallback string) string {
	if m.Title != "" {
		return m.Title
	}
	if m.SourceTool != "" {
		if m.Role == "" {
			return m.SourceTool
		}
		return m.SourceTool + " / " + m.Role
	}
	return fallback
}

// When returns the hit's timestamp, falling back to the creation time.
func (m Meta) When() string {
	if m.Timestamp != "" {
		return m.Timestamp
	}
	return m.CreatedAt
}

// Preview collapses whitespace and trims text to at most n runes.
func Preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if n < 4 || len(r) <= n {
		return text
	}
	return string(r[:n-3]) + "..."
}
