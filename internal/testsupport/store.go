package testsupport

import (
	"context"
	"testing"

	"licensesync/internal/config"
	"licensesync/internal/license"
	"licensesync/internal/store"
)

// MustOpenStore opens a SQLite store for tests and registers cleanup.
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

// MustUpsert writes a record and fails the test on error.
func MustUpsert(t testing.TB, st *store.Store, rec license.Record) {
	t.Helper()

	if err := st.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
}
