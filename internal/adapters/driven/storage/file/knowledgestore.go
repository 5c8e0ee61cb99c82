package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

const recordExt = ".yaml"

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore persists knowledge records as YAML files grouped by type.
type KnowledgeStore struct {
	dir string
	mu  sync.RWMutex
}

// NewKnowledgeStore creates a store rooted at dir.
func NewKnowledgeStore(dir string) *KnowledgeStore {
	return &KnowledgeStore{dir: dir}
}

// Dir returns the root directory.
func (s *KnowledgeStore) Dir() string {
	return s.dir
}

// Initialize creates the per-type directories.
func (s *KnowledgeStore) Initialize() error {
	for _, kt := range domain.KnowledgeTypes {
		if err := os.MkdirAll(filepath.Join(s.dir, kt.Dir()), 0755); err != nil {
			return fmt.Errorf("creating %s directory: %w", kt.Dir(), err)
		}
	}
	return nil
}

// Save writes a record, replacing any existing file with the same identifier.
func (s *KnowledgeStore) Save(_ context.Context, rec domain.KnowledgeRecord) error {
	if !validID(rec.ID) || !rec.Type.IsValid() {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(rec)
}

// Get retrieves a record by identifier, searching every type directory.
func (s *KnowledgeStore) Get(_ context.Context, id string) (*domain.KnowledgeRecord, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(id)
}

// ListByType returns records of one type, newest first.
func (s *KnowledgeStore) ListByType(_ context.Context, kt domain.KnowledgeType) ([]domain.KnowledgeRecord, error) {
	if !kt.IsValid() {
		return nil, domain.ErrInvalidKnowledgeType
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.readDir(kt)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(records)
	return records, nil
}

// ListAll returns every record, newest first.
func (s *KnowledgeStore) ListAll(_ context.Context) ([]domain.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := []domain.KnowledgeRecord{}
	for _, kt := range domain.KnowledgeTypes {
		records, err := s.readDir(kt)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	sortNewestFirst(all)
	return all, nil
}

// Supersede sets superseded_by on oldID and rewrites its file.
func (s *KnowledgeStore) Supersede(_ context.Context, oldID, newID string) error {
	if !validID(oldID) {
		return domain.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.find(oldID)
	if err != nil {
		return err
	}
	rec.SupersededBy = newID
	return s.write(*rec)
}

func (s *KnowledgeStore) path(kt domain.KnowledgeType, id string) string {
	return filepath.Join(s.dir, kt.Dir(), id+recordExt)
}

func (s *KnowledgeStore) find(id string) (*domain.KnowledgeRecord, error) {
	for _, kt := range domain.KnowledgeTypes {
		rec, err := readRecord(s.path(kt, id))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, domain.ErrNotFound
}

func (s *KnowledgeStore) readDir(kt domain.KnowledgeType) ([]domain.KnowledgeRecord, error) {
	dir := filepath.Join(s.dir, kt.Dir())
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.KnowledgeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	records := make([]domain.KnowledgeRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		rec, err := readRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// write marshals rec to a temp file in the target directory and renames it
// into place.
func (s *KnowledgeStore) write(rec domain.KnowledgeRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling knowledge record: %w", err)
	}

	target := s.path(rec.Type, rec.ID)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating knowledge directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+rec.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing knowledge record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing knowledge record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing knowledge record: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("finalizing knowledge record: %w", err)
	}
	return nil
}

func readRecord(path string) (*domain.KnowledgeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec domain.KnowledgeRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &rec, nil
}

func sortNewestFirst(records []domain.KnowledgeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// validID rejects identifiers that could escape the type directory.
func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
