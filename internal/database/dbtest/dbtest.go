// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kkkkikiki/groupbuy/internal/config"
	"github.com/kkkkikiki/groupbuy/internal/database"
)

// Open returns a migrated SQLite database under t.TempDir, closed on cleanup.
func Open(t testing.TB) *database.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "groupbuy.db"),
	}
	db, err := database.NewDB(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return db
}
