package testsupport

import (
	"context"
	"testing"

	"bosstitler/internal/config"
	"bosstitler/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// AddJob enqueues a video for tests using the provided store.
func AddJob(t testing.TB, st *store.Store, videoID, title, game string) {
	t.Helper()

	if _, err := st.AddJob(context.Background(), videoID, title, game); err != nil {
		t.Fatalf("store.AddJob: %v", err)
	}
}
