package driven

import "github.com/custodia-labs/lenscore/internal/core/domain"

// ConfigStore loads the configuration snapshot for a run.
type ConfigStore interface {
	// Load reads and validates the configuration.
	// A missing file yields the defaults.
	Load() (domain.Config, error)

	// Path returns the configuration file location.
	Path() string

	// WriteDefault writes a commented default configuration file.
	// It refuses to overwrite an existing file unless force is set.
	WriteDefault(force bool) error
}
