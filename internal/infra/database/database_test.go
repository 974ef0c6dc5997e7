package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/webgallery/internal/infra/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Driver:          "sqlite",
		DSN:             filepath.Join(t.TempDir(), "nested", "test.db"),
		BusyTimeout:     time.Second,
		ConnMaxLifetime: time.Minute,
		AutoMigrate:     true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestOpenMigrates(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	version, err := db.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{"users", "sessions", "images", "comments"} {
		var n int

		err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
		require.NoError(t, err, table)
	}

	require.NoError(t, db.Migrate(context.Background()), "migrating twice must be a no-op")
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	insert := "INSERT INTO users (username, salt, salted_hash, created_at) VALUES (?, ?, ?, ?)"

	_, err := db.Exec(insert, "alice", []byte("s"), []byte("h"), 1)
	require.NoError(t, err)

	_, err = db.Exec(insert, "alice", []byte("s"), []byte("h"), 2)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	assert.False(t, database.IsUniqueViolation(errors.New("other")))
	assert.False(t, database.IsUniqueViolation(nil))
}

func TestRebind(t *testing.T) {
	t.Parallel()

	query := "SELECT a FROM t WHERE b = ? AND c > ? LIMIT ?"

	assert.Equal(t, query, database.Rebind(database.DialectSQLite, query))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c > $2 LIMIT $3", database.Rebind(database.DialectPostgres, query))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := database.Open(context.Background(), database.Config{Driver: "oracle"})
	assert.ErrorIs(t, err, database.ErrUnsupportedDriver)
}
