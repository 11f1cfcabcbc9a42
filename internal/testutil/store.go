package testutil

import (
	"testing"

	"tabward/internal/database"
)

// NewTestStore creates an in-memory SQLite store with migrations applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
