package testsupport

import (
	"testing"

	"deckhand/internal/config"
	"deckhand/internal/store"
)

// MustOpenStore opens a settings store for cfg and registers cleanup.
func MustOpenStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}
