// Package dbtest opens throwaway in-memory SQLite stores for tests.
package dbtest

import (
	"context"
	"testing"

	"schraper/catalog/internal/db"
	"schraper/catalog/internal/db/migrations"
)

// NewStore returns an empty in-memory store closed at test cleanup.
func NewStore(t testing.TB) *db.Store {
	t.Helper()

	store, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewMigratedStore returns an in-memory store with the catalog schema applied.
func NewMigratedStore(t testing.TB) *db.Store {
	t.Helper()

	store := NewStore(t)
	runner := migrations.NewRunner(store.SQL, &migrations.LocalLock{}, nil)
	if _, err := runner.Apply(context.Background(), migrations.CatalogMigrations()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return store
}
