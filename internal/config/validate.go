package config

import (
	"fmt"
	"strings"
)

var validStoreBackends = map[string]struct{}{
	"auto":   {},
	"sqlite": {},
	"file":   {},
}

var validLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	if _, ok := validStoreBackends[c.Store.Backend]; !ok {
		return fmt.Errorf("store.backend: unsupported value %q (want auto, sqlite, or file)", c.Store.Backend)
	}
	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	return nil
}
