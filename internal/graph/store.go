package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/starford/sefs/internal/checksum"
	"github.com/starford/sefs/internal/models"
	"github.com/starford/sefs/internal/storage"
)

// Store keeps the current artifact in memory and on disk. Replace is
// persist-then-swap, so readers see either the old or the new graph.
type Store struct {
	path string

	mu      sync.RWMutex
	current *models.Graph
	raw     []byte
	etag    string
}

// NewStore returns a Store persisting to path. An empty path keeps the
// artifact in memory only.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load restores the artifact from disk. A missing file is not an error.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("graph: load: %w", err)
	}
	var g models.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("graph: decode %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.current, s.raw, s.etag = &g, data, checksum.ETag(data)
	s.mu.Unlock()
	return nil
}

// Replace persists g and makes it current.
func (s *Store) Replace(g *models.Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("graph: encode: %w", err)
	}
	if s.path != "" {
		if err := storage.WriteFileAtomic(s.path, data, 0o600); err != nil {
			return fmt.Errorf("graph: persist: %w", err)
		}
	}
	s.mu.Lock()
	s.current, s.raw, s.etag = g, data, checksum.ETag(data)
	s.mu.Unlock()
	return nil
}

// Current returns the current graph, or nil before the first completed cycle.
func (s *Store) Current() *models.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Raw returns the encoded current graph and its ETag.
func (s *Store) Raw() ([]byte, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw, s.etag
}
