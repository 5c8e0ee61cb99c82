package domain

// RRFK is the Reciprocal Rank Fusion smoothing constant. Each appearance at
// zero-based rank r contributes 1/(RRFK+r+1). It is fixed, never tuned per query.
const RRFK = 60

// Record tables.
const (
	// TableContext holds records harvested from AI tool conversations.
	TableContext = "context"

	// TableKnowledge holds embedded knowledge records.
	TableKnowledge = "knowledge"
)

// DefaultSearchLimit is used when a search does not set a limit.
const DefaultSearchLimit = 10

// SearchMode defines how a search combines retrieval methods.
type SearchMode string

// Available search modes.
const (
	// SearchModeKeyword uses only full-text search.
	SearchModeKeyword SearchMode = "keyword"

	// SearchModeSemantic uses only vector similarity search.
	SearchModeSemantic SearchMode = "semantic"

	// SearchModeHybrid fuses keyword and vector rankings with RRF.
	SearchModeHybrid SearchMode = "hybrid"
)

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchModeKeyword, SearchModeSemantic, SearchModeHybrid:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if this mode needs an embedding provider.
func (m SearchMode) RequiresEmbedding() bool {
	return m == SearchModeSemantic || m == SearchModeHybrid
}

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m SearchMode) Description() string {
	switch m {
	case SearchModeKeyword:
		return "Keyword (full-text search)"
	case SearchModeSemantic:
		return "Semantic (vector search)"
	case SearchModeHybrid:
		return "Hybrid (keyword + vector, RRF)"
	default:
		return "Unknown"
	}
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// Table is the record table to search. Defaults to TableContext.
	Table string

	// Mode selects the retrieval method. Defaults to SearchModeHybrid.
	Mode SearchMode

	// Limit is the maximum number of results.
	Limit int
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// ID is the record identifier.
	ID string `json:"id"`

	// Text is the record's text.
	Text string `json:"text"`

	// Metadata is the record's serialised metadata.
	Metadata string `json:"metadata"`

	// Score is the native score for single-list modes, or the fused score in hybrid mode.
	Score float64 `json:"score"`
}
