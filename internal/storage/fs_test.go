package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/sefs/internal/apperr"
)

func tempRoot(t *testing.T, opts ...FSOption) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, opts...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("rocket launch notes\n")
	if err := s.Write("notes.txt", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("notes.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/c.txt", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestMove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("old.txt", []byte("data"))
	if err := s.Move("old.txt", "SUB/old.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("SUB/old.txt")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.txt"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestMoveRefusesOverwrite(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.txt", []byte("first"))
	_ = s.Write("DIR/a.txt", []byte("second"))
	err := s.Move("a.txt", "DIR/a.txt")
	if !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("expected ErrDestinationExists, got %v", err)
	}
	got, _ := s.Read("DIR/a.txt")
	if string(got) != "second" {
		t.Errorf("destination overwritten: %q", got)
	}
}

func TestMoveSamePathIsNoop(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("DIR/a.txt", []byte("x"))
	if err := s.Move("DIR/a.txt", "DIR/a.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	s := tempRoot(t,
		WithFilter(func(name string) bool { return strings.HasSuffix(name, ".txt") }),
		WithExclude([]string{"**/node_modules/**"}),
	)
	_ = s.Write("b.txt", []byte("b"))
	_ = s.Write("a.txt", []byte("a"))
	_ = s.Write("sub/c.txt", []byte("c"))
	_ = s.Write("image.bmp", []byte("skip"))
	_ = s.Write(".hidden.txt", []byte("skip"))
	_ = s.Write(".git/objects/x.txt", []byte("skip"))
	_ = s.Write("web/node_modules/pkg/readme.txt", []byte("skip"))

	files, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var rels []string
	for _, f := range files {
		rels = append(rels, f.Rel)
	}
	want := []string{"a.txt", "b.txt", "sub/c.txt"}
	if strings.Join(rels, ",") != strings.Join(want, ",") {
		t.Errorf("List = %v, want %v", rels, want)
	}
	if files[0].Ext != ".txt" || files[0].Size != 1 {
		t.Errorf("meta = %+v", files[0])
	}
}

func TestFind(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("A/report.pdf", []byte("one"))
	_ = s.Write("B/report.pdf", []byte("two"))

	m, err := s.Find("report.pdf")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if m.Rel != "A/report.pdf" {
		t.Errorf("Find returned %s, want first in lexical order", m.Rel)
	}

	if _, err := s.Find("missing.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Find("../etc/passwd"); !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestPathTraversal(t *testing.T) {
	s := tempRoot(t)
	if _, err := s.Read("../../etc/passwd"); err == nil {
		t.Error("expected error for path traversal")
	}
	if err := s.Write("../escape.txt", []byte("bad")); err == nil {
		t.Error("expected error for path traversal write")
	}
	if err := s.Move("x.txt", "../../x.txt"); err == nil {
		t.Error("expected error for path traversal move")
	}
}

func TestNewFSRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(file); err == nil {
		t.Error("expected error for non-directory root")
	}
	if _, err := NewFS(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data", "graph.json")
	if err := WriteFileAtomic(p, []byte("one"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(p, []byte("two"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, _ := os.ReadFile(p)
	if string(got) != "two" {
		t.Errorf("content = %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(p))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
	info, _ := os.Stat(p)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v", info.Mode().Perm())
	}
}
