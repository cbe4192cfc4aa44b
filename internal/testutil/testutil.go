// Package testutil provides shared test helpers for managed roots and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/sefs/internal/catalog"
	"github.com/starford/sefs/internal/storage"
)

// TestDB creates a temporary catalog database that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Open(filepath.Join(t.TempDir(), "sefs-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRoot creates a temporary managed root with a storage provider.
func TestRoot(t *testing.T, opts ...storage.FSOption) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// WriteFiles creates each rel → content pair under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
