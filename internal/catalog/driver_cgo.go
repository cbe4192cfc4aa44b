//go:build !purego

package catalog

// Default build: CGO SQLite via mattn/go-sqlite3.
//
//	CGO_ENABLED=1 go build ./...
//	CGO_ENABLED=1 go build -tags sqlite_fts5 ./...   # FTS5 search

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver in use.
	DriverName = "sqlite3"
	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}
