package sqlstore

import (
	"context"
	"testing"
	"time"
)

// NewTestDB opens a fresh in-memory SQLite database with every migration applied.
func NewTestDB(t testing.TB) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := open(ctx, "sqlite", sqliteDSN(":memory:"), dialectSQLite, 5*time.Second)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		t.Fatalf("migrating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
