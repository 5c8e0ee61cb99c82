package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

// insightTitleLength caps titles derived from insight text.
const insightTitleLength = 80

// KnowledgeIndexer keeps a searchable copy of knowledge records.
type KnowledgeIndexer interface {
	Index(ctx context.Context, rec domain.KnowledgeRecord) error
}

// KnowledgeService runs the dedup and supersession write pipeline and
// serves knowledge reads.
type KnowledgeService struct {
	store   driven.KnowledgeStore
	lookup  driven.SimilarityLookup
	indexer KnowledgeIndexer

	sourceTool  string
	domainTags  map[string][]string
	environment domain.Environment
	now         func() time.Time

	locksMu   sync.Mutex
	typeLocks map[domain.KnowledgeType]*sync.Mutex
}

// NewKnowledgeService creates a knowledge service.
// lookup and indexer are optional (can be nil). Without a lookup every
// write is created; without an indexer records are not searchable.
func NewKnowledgeService(
	store driven.KnowledgeStore,
	lookup driven.SimilarityLookup,
	indexer KnowledgeIndexer,
) *KnowledgeService {
	return &KnowledgeService{
		store:      store,
		lookup:     lookup,
		indexer:    indexer,
		sourceTool: "mcp",
		domainTags: domain.DefaultDomainTags(),
		environment: domain.Environment{
			OS:              runtime.GOOS + "/" + runtime.GOARCH,
			RuntimeVersions: map[string]string{"go": runtime.Version()},
		},
		now:       time.Now,
		typeLocks: make(map[domain.KnowledgeType]*sync.Mutex),
	}
}

// SetSourceTool sets the source tool recorded on new records.
func (s *KnowledgeService) SetSourceTool(tool string) {
	if tool != "" {
		s.sourceTool = tool
	}
}

// SetDomainTags replaces the tag keyword map used for auto-tagging.
func (s *KnowledgeService) SetDomainTags(tags map[string][]string) {
	s.domainTags = tags
}

// SetToolVersion records the xtctx version in each record's environment.
func (s *KnowledgeService) SetToolVersion(version string) {
	s.environment.ToolVersion = version
}

// lockFor returns the mutex serialising writes of one knowledge type.
func (s *KnowledgeService) lockFor(kt domain.KnowledgeType) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.typeLocks[kt]
	if !ok {
		mu = &sync.Mutex{}
		s.typeLocks[kt] = mu
	}
	return mu
}

// Write runs the dedup and supersession pipeline for one draft.
//
// Writes of the same type are serialised so the similarity check and the
// write cannot interleave with another write of that type. For a
// superseding write the new record is saved before the old record is
// linked; a failed link is reported in Warnings and not rolled back.
func (s *KnowledgeService) Write(ctx context.Context, draft domain.KnowledgeDraft) (domain.WriteResult, error) {
	if !draft.Type.IsValid() {
		return domain.WriteResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidKnowledgeType, draft.Type)
	}
	title := strings.TrimSpace(draft.Title)
	body := strings.TrimSpace(draft.Body)
	if title == "" {
		return domain.WriteResult{}, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	mu := s.lockFor(draft.Type)
	mu.Lock()
	defer mu.Unlock()

	match := s.findSimilar(ctx, draft.Type, domain.CandidateText(title, body))
	action, matchedID := ClassifyDuplicate(match)

	if action == domain.WriteDuplicateRejected {
		logger.Info("Knowledge write rejected: duplicate of %s", matchedID)
		return domain.WriteResult{
			Action:     action,
			ID:         matchedID,
			ReplacedID: matchedID,
			Message:    "Similar record already exists; write rejected.",
		}, nil
	}

	id := domain.KnowledgeID(title, body, s.sourceTool)

	// Identical content maps to a stored record, possibly a superseded one
	// the lookup skips. Stored records are never overwritten.
	existing, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		logger.Info("Knowledge write rejected: %s already stored", existing.ID)
		return domain.WriteResult{
			Action:     domain.WriteDuplicateRejected,
			ID:         existing.ID,
			ReplacedID: existing.ID,
			Message:    "Identical record already exists; write rejected.",
		}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.WriteResult{}, fmt.Errorf("check knowledge %s: %w", id, err)
	}

	rec := domain.KnowledgeRecord{
		ID:              id,
		Type:            draft.Type,
		CreatedAt:       s.now().UTC(),
		Supersedes:      matchedID,
		SourceTool:      s.sourceTool,
		SourceSession:   draft.SourceSession,
		ReferencedFiles: nonNil(draft.ReferencedFiles),
		DomainTags:      classifyDomains(title+"\n"+body, s.domainTags),
		Environment:     s.environment,
		Title:           title,
		Body:            body,
		Metadata:        draft.Metadata,
	}

	if err := s.store.Save(ctx, rec); err != nil {
		return domain.WriteResult{}, fmt.Errorf("save knowledge %s: %w", id, err)
	}

	result := domain.WriteResult{Action: action, ID: id, ReplacedID: matchedID}
	s.index(ctx, rec, &result)

	if action == domain.WriteSuperseded {
		s.linkSuperseded(ctx, matchedID, id, &result)
		result.Message = fmt.Sprintf("Superseded %s.", matchedID)
	} else {
		result.Message = "Created."
	}

	logger.Info("Knowledge %s: %s (%s)", action, id, draft.Type)
	return result, nil
}

// findSimilar consults the lookup. A failing lookup degrades to no match.
func (s *KnowledgeService) findSimilar(
	ctx context.Context, kt domain.KnowledgeType, candidate string,
) *domain.SimilarityMatch {
	if s.lookup == nil {
		return nil
	}
	match, err := s.lookup.FindSimilar(ctx, kt, candidate)
	if err != nil {
		logger.Warn("Similarity lookup failed, treating as no match: %v", err)
		return nil
	}
	return match
}

func (s *KnowledgeService) index(ctx context.Context, rec domain.KnowledgeRecord, result *domain.WriteResult) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Index(ctx, rec); err != nil {
		logger.Warn("Knowledge indexing failed for %s: %v", rec.ID, err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("index %s: %v", rec.ID, err))
	}
}

// linkSuperseded sets superseded_by on the old record and refreshes its
// indexed copy so it no longer matches lookups.
func (s *KnowledgeService) linkSuperseded(ctx context.Context, oldID, newID string, result *domain.WriteResult) {
	if err := s.store.Supersede(ctx, oldID, newID); err != nil {
		logger.Warn("Failed to link superseded record %s -> %s: %v", oldID, newID, err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("link superseded record %s: %v", oldID, err))
		return
	}

	if s.indexer == nil {
		return
	}
	old, err := s.store.Get(ctx, oldID)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("reload superseded record %s: %v", oldID, err))
		return
	}
	s.index(ctx, *old, result)
}

// SaveDecision records a decision with its rationale.
func (s *KnowledgeService) SaveDecision(ctx context.Context, in driving.DecisionInput) (domain.WriteResult, error) {
	parts := []string{strings.TrimSpace(in.Rationale)}
	if c := strings.TrimSpace(in.Context); c != "" {
		parts = append(parts, "Context: "+c)
	}
	if len(in.AlternativesConsidered) > 0 {
		parts = append(parts, "Alternatives: "+strings.Join(in.AlternativesConsidered, "; "))
	}

	return s.Write(ctx, domain.KnowledgeDraft{
		Type:            domain.KnowledgeDecision,
		Title:           in.Title,
		Body:            strings.Join(parts, "\n\n"),
		SourceSession:   in.SourceSession,
		ReferencedFiles: in.ReferencedFiles,
		Metadata: compactMetadata(map[string]string{
			"rationale":               in.Rationale,
			"context":                 in.Context,
			"alternatives_considered": strings.Join(in.AlternativesConsidered, "; "),
		}),
	})
}

// SaveErrorSolution records an error and the fix that resolved it.
func (s *KnowledgeService) SaveErrorSolution(
	ctx context.Context, in driving.ErrorSolutionInput,
) (domain.WriteResult, error) {
	parts := []string{"Solution: " + strings.TrimSpace(in.Solution)}
	if c := strings.TrimSpace(in.Context); c != "" {
		parts = append(parts, "Context: "+c)
	}

	return s.Write(ctx, domain.KnowledgeDraft{
		Type:            domain.KnowledgeErrorSolution,
		Title:           in.Error,
		Body:            strings.Join(parts, "\n\n"),
		SourceSession:   in.SourceSession,
		ReferencedFiles: in.ReferencedFiles,
		Metadata: compactMetadata(map[string]string{
			"error":    in.Error,
			"solution": in.Solution,
			"context":  in.Context,
		}),
	})
}

// SaveInsight records a project insight. The title is the start of the insight.
func (s *KnowledgeService) SaveInsight(ctx context.Context, in driving.InsightInput) (domain.WriteResult, error) {
	insight := strings.TrimSpace(in.Insight)

	title := insight
	if r := []rune(title); len(r) > insightTitleLength {
		title = string(r[:insightTitleLength])
	}
	if title == "" {
		title = "Project insight"
	}

	body := insight
	if c := strings.TrimSpace(in.Context); c != "" {
		body = insight + "\n\nContext: " + c
	}

	return s.Write(ctx, domain.KnowledgeDraft{
		Type:            domain.KnowledgeInsight,
		Title:           title,
		Body:            body,
		SourceSession:   in.SourceSession,
		ReferencedFiles: in.ReferencedFiles,
		Metadata: compactMetadata(map[string]string{
			"insight": in.Insight,
			"context": in.Context,
		}),
	})
}

// List returns records of one type, or of every type when kt is empty,
// newest first. A non-empty query keeps records whose title, body or tags
// contain it, case-insensitively.
func (s *KnowledgeService) List(
	ctx context.Context, kt domain.KnowledgeType, query string,
) ([]domain.KnowledgeRecord, error) {
	var (
		records []domain.KnowledgeRecord
		err     error
	)

	if kt == "" || kt == "all" {
		records, err = s.store.ListAll(ctx)
	} else {
		if !kt.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKnowledgeType, kt)
		}
		records, err = s.store.ListByType(ctx, kt)
	}
	if err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records, nil
	}

	filtered := make([]domain.KnowledgeRecord, 0, len(records))
	for i := range records {
		if matchesQuery(&records[i], query) {
			filtered = append(filtered, records[i])
		}
	}
	return filtered, nil
}

// Get returns one record by identifier.
func (s *KnowledgeService) Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error) {
	rec, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get knowledge %s: %w", id, err)
	}
	return rec, nil
}

func matchesQuery(rec *domain.KnowledgeRecord, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(rec.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(rec.Body), lowerQuery) {
		return true
	}
	for _, tag := range rec.DomainTags {
		if strings.Contains(strings.ToLower(tag), lowerQuery) {
			return true
		}
	}
	return false
}

func compactMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
