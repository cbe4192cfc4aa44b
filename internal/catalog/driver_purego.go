//go:build purego

package catalog

// Pure Go SQLite via modernc.org/sqlite; no C toolchain required.
//
//	CGO_ENABLED=0 go build -tags purego ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver in use.
	DriverName = "sqlite"
	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)

func dsn(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}
