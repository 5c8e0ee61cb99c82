package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// KnowledgeIDLength is the number of hex characters kept for knowledge identifiers.
const KnowledgeIDLength = 16

// KnowledgeType classifies an explicitly authored knowledge record.
type KnowledgeType string

// Available knowledge types.
const (
	KnowledgeDecision      KnowledgeType = "decision"
	KnowledgeErrorSolution KnowledgeType = "error_solution"
	KnowledgeInsight       KnowledgeType = "insight"
	KnowledgeConvention    KnowledgeType = "convention"
	KnowledgeGotcha        KnowledgeType = "gotcha"
)

// KnowledgeTypes lists every knowledge type in listing order.
var KnowledgeTypes = []KnowledgeType{
	KnowledgeDecision,
	KnowledgeErrorSolution,
	KnowledgeInsight,
	KnowledgeConvention,
	KnowledgeGotcha,
}

// IsValid returns true if the knowledge type is recognised.
func (t KnowledgeType) IsValid() bool {
	for _, known := range KnowledgeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (t KnowledgeType) String() string {
	return string(t)
}

// Dir returns the directory name records of this type are grouped under.
func (t KnowledgeType) Dir() string {
	switch t {
	case KnowledgeDecision:
		return "decisions"
	case KnowledgeErrorSolution:
		return "errors"
	case KnowledgeInsight:
		return "insights"
	case KnowledgeConvention:
		return "conventions"
	case KnowledgeGotcha:
		return "gotchas"
	default:
		return ""
	}
}

// Environment captures where a knowledge record was authored.
type Environment struct {
	OS              string            `json:"os,omitempty" yaml:"os,omitempty"`
	ToolVersion     string            `json:"tool_version,omitempty" yaml:"tool_version,omitempty"`
	RuntimeVersions map[string]string `json:"runtime_versions,omitempty" yaml:"runtime_versions,omitempty"`
}

// KnowledgeRecord is a decision, error/solution pair, insight, convention
// or gotcha. Records are never hard-deleted; the only mutation after
// creation is setting SupersededBy.
type KnowledgeRecord struct {
	ID              string            `json:"id" yaml:"id"`
	Type            KnowledgeType     `json:"type" yaml:"type"`
	CreatedAt       time.Time         `json:"created_at" yaml:"created_at"`
	Supersedes      string            `json:"supersedes,omitempty" yaml:"supersedes,omitempty"`
	SupersededBy    string            `json:"superseded_by,omitempty" yaml:"superseded_by,omitempty"`
	SourceTool      string            `json:"source_tool" yaml:"source_tool"`
	SourceSession   string            `json:"source_session,omitempty" yaml:"source_session,omitempty"`
	ReferencedFiles []string          `json:"referenced_files" yaml:"referenced_files"`
	DomainTags      []string          `json:"domain_tags" yaml:"domain_tags"`
	Environment     Environment       `json:"environment" yaml:"environment"`
	Title           string            `json:"title" yaml:"title"`
	Body            string            `json:"body" yaml:"body"`
	Metadata        map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsActive reports whether the record has not been superseded.
func (r *KnowledgeRecord) IsActive() bool {
	return r.SupersededBy == ""
}

// CandidateText is the text compared by the similarity lookup.
func (r *KnowledgeRecord) CandidateText() string {
	return CandidateText(r.Title, r.Body)
}

// CandidateText joins a title and body the way the write pipeline compares them.
func CandidateText(title, body string) string {
	return title + "\n" + body
}

// KnowledgeID derives the identifier for a knowledge record from its title,
// body and source tool. Identical resubmissions map to the same identifier.
func KnowledgeID(title, body, sourceTool string) string {
	sum := sha256.Sum256([]byte(title + "|" + body + "|" + sourceTool))
	return hex.EncodeToString(sum[:])[:KnowledgeIDLength]
}

// WriteAction is the outcome of a knowledge write.
type WriteAction string

// Available write actions.
const (
	WriteCreated           WriteAction = "created"
	WriteSuperseded        WriteAction = "superseded"
	WriteDuplicateRejected WriteAction = "duplicate_rejected"
)

// WriteResult is the structured outcome of a knowledge write.
type WriteResult struct {
	// Action says what happened.
	Action WriteAction `json:"action"`

	// ID is the new record's identifier, or the matched record's identifier
	// when the write was rejected as a duplicate.
	ID string `json:"id"`

	// ReplacedID is the matched record for superseded and rejected writes.
	ReplacedID string `json:"replaced_id,omitempty"`

	// Message is a human-readable explanation.
	Message string `json:"message,omitempty"`

	// Warnings lists non-fatal problems, such as a failed back-link update.
	Warnings []string `json:"warnings,omitempty"`
}

// KnowledgeDraft is the input to the write pipeline.
type KnowledgeDraft struct {
	Type            KnowledgeType
	Title           string
	Body            string
	SourceSession   string
	ReferencedFiles []string
	Metadata        map[string]string
}

// SimilarityMatch is the closest existing knowledge record for a candidate.
type SimilarityMatch struct {
	ID         string
	Similarity float64
}
