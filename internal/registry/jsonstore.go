package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/starford/sefs/internal/storage"
)

// JSONFile stores entries as a flat {"name": "secret"} object.
type JSONFile struct {
	mu   sync.Mutex
	path string
}

// NewJSONFile returns a store persisted at path. The file is created on first write.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load reads the file. A missing file is an empty registry.
func (s *JSONFile) Load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *JSONFile) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *JSONFile) Put(name, secret string) error {
	return s.update(func(m map[string]string) { m[name] = secret })
}

func (s *JSONFile) Delete(name string) error {
	return s.update(func(m map[string]string) { delete(m, name) })
}

// update rewrites the whole file. A corrupt file is replaced rather than
// blocking writes.
func (s *JSONFile) update(fn func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.read()
	if err != nil {
		entries = map[string]string{}
	}
	fn(entries)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(s.path, data, 0o600)
}
