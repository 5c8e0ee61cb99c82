package domain

import "time"

// Role identifies who produced a conversation item.
type Role string

// Available roles. Source adapters normalise tool-specific roles to these.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// IsValid returns true if the role is one of the fixed set.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Item is one unit of harvested conversation content.
// Items are immutable once produced by a source adapter.
type Item struct {
	// Source is the name of the adapter that produced the item (e.g. "claude-code").
	Source string

	// SessionID identifies the conversation the item belongs to.
	SessionID string

	// Timestamp is when the item was produced by the tool.
	Timestamp time.Time

	// Role is the normalised speaker role.
	Role Role

	// Content is the textual payload.
	Content string

	// Metadata carries optional extraction details.
	Metadata ItemMetadata
}

// ItemMetadata is the extensible metadata bag attached to an Item.
type ItemMetadata struct {
	// MessageIndex is the position of the item within its session.
	MessageIndex int `json:"message_index,omitempty"`

	// TokenEstimate is a rough token count for the content.
	TokenEstimate int `json:"token_estimate,omitempty"`

	// ReferencedFiles lists file paths mentioned by the item.
	ReferencedFiles []string `json:"referenced_files,omitempty"`

	// Extra holds adapter-specific values.
	Extra map[string]string `json:"extra,omitempty"`
}

// EstimateTokens returns a rough token count (four characters per token).
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return (len(content) + 3) / 4
}
