package driven

import "github.com/custodia-labs/xtctx/internal/core/domain"

// SettingsStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
type SettingsStore interface {
	// Load reads settings, applying defaults for anything unset.
	Load() (domain.Settings, error)

	// Save persists settings.
	Save(settings domain.Settings) error

	// Path returns the configuration file path.
	Path() string
}
