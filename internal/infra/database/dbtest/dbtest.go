// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkrupp/webgallery/internal/infra/database"
)

// Open returns a migrated SQLite database in a temporary directory that is closed
// when the test ends.
func Open(tb testing.TB) *database.DB {
	tb.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Driver:          string(database.DialectSQLite),
		DSN:             filepath.Join(tb.TempDir(), "test.db"),
		BusyTimeout:     5 * time.Second,
		ConnMaxLifetime: time.Minute,
		AutoMigrate:     true,
	})
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}

	tb.Cleanup(func() { _ = db.Close() })

	return db
}
