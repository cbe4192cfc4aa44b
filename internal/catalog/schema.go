// Package catalog provides the SQLite database behind the lock table, cycle
// history and last-cycle file search, with optional FTS5 full-text search.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS locks (
	name      TEXT PRIMARY KEY,
	secret    TEXT NOT NULL,
	locked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cycles (
	id            TEXT PRIMARY KEY,
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL,
	outcome       TEXT NOT NULL,
	scanned       INTEGER NOT NULL DEFAULT 0,
	embedded      INTEGER NOT NULL DEFAULT 0,
	clusters      INTEGER NOT NULL DEFAULT 0,
	moved         INTEGER NOT NULL DEFAULT 0,
	move_failures INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at);

CREATE TABLE IF NOT EXISTS files (
	name       TEXT PRIMARY KEY,
	folder     TEXT NOT NULL,
	path       TEXT NOT NULL,
	summary    TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	locked     INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("catalog: mkdir: %w", err)
		}
	}
	conn, err := sql.Open(DriverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
