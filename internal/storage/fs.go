package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/sefs/internal/apperr"
	"github.com/starford/sefs/internal/models"
)

// ErrDestinationExists is returned by Move when the target path is taken.
var ErrDestinationExists = errors.New("storage: destination exists")

// FS implements Provider backed by the local file system.
type FS struct {
	root     string // absolute path to the managed root
	supports func(name string) bool
	exclude  []string
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithFilter restricts listing to files for which supports returns true.
func WithFilter(supports func(name string) bool) FSOption {
	return func(f *FS) { f.supports = supports }
}

// WithExclude skips files whose relative path matches any doublestar pattern.
func WithExclude(patterns []string) FSOption {
	return func(f *FS) { f.exclude = append(f.exclude, patterns...) }
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs, supports: func(string) bool { return true }}
	for _, opt := range opts {
		opt(f)
	}
	for _, p := range f.exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("storage: invalid exclude pattern %q", p)
		}
	}
	return f, nil
}

// Root returns the absolute managed root.
func (f *FS) Root() string { return f.root }

// Abs resolves a relative path against the root and rejects any result that
// escapes it (directory traversal).
func (f *FS) Abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes managed root: %s", rel)
	}
	return abs, nil
}

// inScope reports whether a file at rel takes part in the pipeline.
func (f *FS) inScope(rel, name string) bool {
	if strings.HasPrefix(name, ".") || !f.supports(name) {
		return false
	}
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	return true
}

// List walks the root and returns metadata for every in-scope file.
// Hidden directories are skipped entirely.
func (f *FS) List() ([]models.FileMeta, error) {
	var out []models.FileMeta
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != f.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !f.inScope(rel, d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// Vanished between readdir and stat.
			return nil
		}
		out = append(out, f.meta(rel, p, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out, nil
}

// Stat returns metadata for the file at rel.
func (f *FS) Stat(rel string) (models.FileMeta, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return models.FileMeta{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.FileMeta{}, fmt.Errorf("storage: stat %s: %w", rel, apperr.ErrNotFound)
		}
		return models.FileMeta{}, fmt.Errorf("storage: stat %s: %w", rel, err)
	}
	return f.meta(filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel))), abs, info), nil
}

// Find returns the first in-scope file (lexical order) with the given basename.
func (f *FS) Find(name string) (models.FileMeta, error) {
	if !ValidName(name) {
		return models.FileMeta{}, apperr.ErrInvalidName
	}
	files, err := f.List()
	if err != nil {
		return models.FileMeta{}, err
	}
	for _, m := range files {
		if m.Name == name {
			return m, nil
		}
	}
	return models.FileMeta{}, fmt.Errorf("storage: find %s: %w", name, apperr.ErrNotFound)
}

// Read returns the raw bytes of a managed file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// Write atomically writes content under the root.
func (f *FS) Write(rel string, content []byte) error {
	abs, err := f.Abs(rel)
	if err != nil {
		return err
	}
	return WriteFileAtomic(abs, content, 0o644)
}

// Move renames a file within the root. The destination must not exist.
func (f *FS) Move(fromRel, toRel string) error {
	absOld, err := f.Abs(fromRel)
	if err != nil {
		return err
	}
	absNew, err := f.Abs(toRel)
	if err != nil {
		return err
	}
	if absOld == absNew {
		return nil
	}
	if _, err := os.Lstat(absNew); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, toRel)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

func (f *FS) meta(rel, abs string, info fs.FileInfo) models.FileMeta {
	return models.FileMeta{
		Rel:       rel,
		Path:      abs,
		Name:      info.Name(),
		Ext:       strings.ToLower(filepath.Ext(info.Name())),
		Size:      info.Size(),
		CreatedAt: createdAt(info),
		UpdatedAt: info.ModTime(),
	}
}

// ValidName reports whether name is a plain basename with no separators or traversal.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "\x00")
}
