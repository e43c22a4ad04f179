// Package sqlite implements storage.Backend on top of an embedded SQLite
// database (modernc.org/sqlite, pure Go, no cgo).
//
// All profiles share one table keyed by (profile, key). The pool is limited
// to a single connection: writes are serialised, and ":memory:" databases
// stay the same database for the lifetime of the DB instead of one per
// pooled connection.
//
// THE TABLE:
//
//	profile    │ key                  │ value (always a string)
//	───────────┼──────────────────────┼──────────────────────────────
//	cq2v8...   │ auth_token           │ gho_xxx
//	cq2v8...   │ latest_documentation │ {"commitSha":"abc1234",...}
//	cli        │ preferences          │ {"defaultFormat":"latex",...}
//
// Values are opaque to this package. Structured values are JSON encoded by
// storage.SetJSON before they get here, exactly like a browser's
// localStorage only ever holds strings.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements storage.Backend.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/autodoc.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database, used by tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	// One connection for the whole process. With ":memory:" every new
	// connection would open its own empty database.
	conn.SetMaxOpenConns(1)

	// sql.Open only validates its arguments; Ping makes the first real
	// connection so a bad path fails here and not on the first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress. It does not
	// apply to in-memory databases.
	if dbPath != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS local_storage (
			profile    TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (profile, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating local_storage table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_local_storage_updated_at ON local_storage(updated_at);
	`)
	if err != nil {
		return fmt.Errorf("creating local_storage updated_at index: %w", err)
	}

	return nil
}
