package services

import "github.com/custodia-labs/xtctx/internal/core/domain"

// Similarity thresholds for knowledge writes. Both bounds are exclusive:
// exactly DuplicateThreshold supersedes, exactly SupersedeThreshold creates.
const (
	DuplicateThreshold = 0.95
	SupersedeThreshold = 0.85
)

// ClassifyDuplicate decides what a write should do given the closest
// existing record. It returns the action and, for rejected and superseding
// writes, the matched identifier.
func ClassifyDuplicate(match *domain.SimilarityMatch) (domain.WriteAction, string) {
	if match == nil || match.ID == "" || match.Similarity == 0 {
		return domain.WriteCreated, ""
	}

	switch {
	case match.Similarity > DuplicateThreshold:
		return domain.WriteDuplicateRejected, match.ID
	case match.Similarity > SupersedeThreshold:
		return domain.WriteSuperseded, match.ID
	default:
		return domain.WriteCreated, ""
	}
}
