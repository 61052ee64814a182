package testsupport

import (
	"testing"

	"packcam/internal/config"
	"packcam/internal/logging"
	"packcam/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) store.Store {
	t.Helper()

	st, err := store.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}
