// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE FOR DEVTRACK?
// The server stores one small table: user accounts with a sealed GitHub
// token. All dashboard data is fetched from GitHub per request and never
// persisted. A single-file embedded database covers that without running a
// database server, and ":memory:" gives every test its own clean instance.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary needs no C toolchain
// (the CGo driver mattn/go-sqlite3 does) and cross-compiles like any other
// Go program, including into a scratch container image.
//
// DATABASE/SQL IN ONE PARAGRAPH:
// sql.DB is a pool, not a connection. sql.Tx pins one connection for a
// transaction (UpsertGitHub uses one). QueryRowContext returns a *sql.Row
// whose Scan reports sql.ErrNoRows when nothing matched; that is where
// apperror.ErrNotFound comes from.
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/devtrack/devtrack-server/internal/repository"

	// BLANK IMPORT:
	// Only the package's init() is wanted: it registers the driver under the
	// name "sqlite", which is what sql.Open("sqlite", ...) looks up.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements repository.UserRepository.
//
// Besides the pool it owns the token sealer, so every read and write of
// access_token goes through Seal/Open in one place (user.go), and a logger
// for tokens that fail to open.
type DB struct {
	conn   *sql.DB
	sealer repository.TokenSealer
	logger *slog.Logger
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/devtrack.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
//
// sealer encrypts access tokens at rest. A nil sealer stores them as-is.
// logger reports tokens that can no longer be opened; nil means slog.Default.
//
// CONNECTION POOL:
// sql.Open only validates its arguments; no connection exists until the first
// query. The Ping below forces one so a bad path or a read-only directory
// fails here at start-up, not on the first login.
func New(dbPath string, sealer repository.TokenSealer, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database, so the
	// pool must never open a second one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// PRAGMAS:
	// WAL (write-ahead logging) lets dashboard reads proceed while an OAuth
	// callback is writing. busy_timeout makes a writer wait up to 5s for the
	// lock instead of failing at once with SQLITE_BUSY.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn, sealer: sealer, logger: logger}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
// server.Start defers it, so the pool is released after the HTTP server has
// drained its in-flight requests:
//
//	srv, err := server.New(cfg, logger)
//	...
//	srv.Start() // returns after shutdown, db closed
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// MIGRATIONS:
// The schema is small enough to live here as SQL strings, run on every start.
// Column additions go through addColumnIfNotExists because SQLite has no
// ALTER TABLE ... ADD COLUMN IF NOT EXISTS. A versioned tool such as
// golang-migrate becomes worth it once a change needs data rewrites.
//
// email is UNIQUE (case-insensitive). github_id is UNIQUE but nullable:
// SQLite allows any number of NULLs in a UNIQUE column, which is what
// password-only accounts need.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			github_id     INTEGER UNIQUE,
			username      TEXT NOT NULL DEFAULT '',
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL DEFAULT '',
			access_token  TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			last_synced   DATETIME,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Older databases predate the sealed token column.
	if err := db.addColumnIfNotExists("users", "access_token", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding access_token to users: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
