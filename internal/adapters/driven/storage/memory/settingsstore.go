package memory

import (
	"sync"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore is an in-memory implementation of driven.SettingsStore for testing.
type SettingsStore struct {
	mu       sync.RWMutex
	settings domain.Settings
	saved    bool
}

// NewSettingsStore creates a store that starts from the given settings.
func NewSettingsStore(settings domain.Settings) *SettingsStore {
	return &SettingsStore{settings: settings}
}

// Load returns the current settings.
func (s *SettingsStore) Load() (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

// Save replaces the current settings after validating them.
func (s *SettingsStore) Save(settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.saved = true
	return nil
}

// Path returns an empty string; nothing is persisted.
func (s *SettingsStore) Path() string {
	return ""
}

// Saved reports whether Save has been called successfully.
func (s *SettingsStore) Saved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saved
}
