// Package database opens the SQL store shared by the record repositories and
// keeps its schema current.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/webgallery/internal/infra/logging"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ErrUnsupportedDriver is returned for an unknown DB_DRIVER.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

const pgUniqueViolation = "23505"

//go:embed migrations
var migrations embed.FS

// Config selects and configures the SQL backend.
type Config struct {
	// Driver is "sqlite" or "postgres"
	Driver string `env:"DRIVER" default:"sqlite"`

	// DSN is the sqlite file path or a postgres connection string
	DSN string `env:"DSN" default:"var/storage/gallery.db"`

	// BusyTimeout is how long sqlite waits on a locked database
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" default:"5s"`

	// ConnMaxLifetime bounds the age of pooled connections
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" default:"5m"`

	// AutoMigrate applies pending migrations on Open
	AutoMigrate bool `env:"AUTO_MIGRATE" default:"true"`
}

// DB is an open connection pool together with its dialect.
type DB struct {
	*sql.DB

	dialect Dialect
	log     logging.Logger
}

// Open connects to the configured database and, when enabled, migrates it.
func Open(ctx context.Context, cfg Config) (_ *DB, err error) {
	log := logging.GetLogger("infra.database").With(
		logging.Group("db", "driver", cfg.Driver),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "open database failed", "error", err)
		}
	}()

	var (
		driverName string
		dsn        string
		dialect    = Dialect(strings.ToLower(cfg.Driver))
	)

	switch dialect {
	case DialectSQLite:
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}

		driverName = "sqlite"
		dsn = sqliteDSN(cfg)
	case DialectPostgres:
		driverName = "pgx"
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{DB: sqlDB, dialect: dialect, log: log}

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			_ = sqlDB.Close()

			return nil, err
		}
	}

	log.DebugContext(ctx, "database opened")

	return db, nil
}

func ensureDir(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}

	path, _, _ = strings.Cut(path, "?")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	return nil
}

func sqliteDSN(cfg Config) string {
	sep := "?"
	if strings.Contains(cfg.DSN, "?") {
		sep = "&"
	}

	return cfg.DSN + sep +
		"_pragma=busy_timeout(" + strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10) + ")" +
		"&_pragma=journal_mode(WAL)"
}

// Dialect returns the backend the pool talks to.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Rebind rewrites ? placeholders into the dialect's form.
func (db *DB) Rebind(query string) string {
	return Rebind(db.dialect, query)
}

// Rebind rewrites ? placeholders into $n for postgres. Queries must not contain
// literal question marks.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var (
		out strings.Builder
		n   int
	)

	out.Grow(len(query) + 8)

	for i := range len(query) {
		if query[i] != '?' {
			out.WriteByte(query[i])

			continue
		}

		n++
		out.WriteByte('$')
		out.WriteString(strconv.Itoa(n))
	}

	return out.String()
}

func (db *DB) provider() (*goose.Provider, error) {
	var gooseDialect goose.Dialect

	switch db.dialect {
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	default:
		gooseDialect = goose.DialectSQLite3
	}

	fsys, err := fs.Sub(migrations, "migrations/"+string(db.dialect))
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(gooseDialect, db.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("new migration provider: %w", err)
	}

	return provider, nil
}

// Migrate applies all pending migrations.
func (db *DB) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			db.log.ErrorContext(ctx, "migrate failed", "error", err)
		}
	}()

	provider, err := db.provider()
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	for _, res := range results {
		db.log.InfoContext(ctx, "migration applied",
			"version", res.Source.Version,
			"duration", res.Duration,
		)
	}

	return nil
}

// Version returns the current schema version.
func (db *DB) Version(ctx context.Context) (int64, error) {
	provider, err := db.provider()
	if err != nil {
		return 0, err
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}

	return version, nil
}

// IsUniqueViolation reports whether err is a primary key or unique constraint
// violation in either dialect.
func IsUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		default:
			return false
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}

// UnixNano converts a stored timestamp back to UTC time.
func UnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
