// Package registry holds the basename → secret lock table and the access gate.
package registry

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/starford/sefs/internal/apperr"
	"github.com/starford/sefs/internal/storage"
)

// Store is durable storage for lock entries.
type Store interface {
	Load() (map[string]string, error)
	Put(name, secret string) error
	Delete(name string) error
}

// Registry serialises access to a Store. Every read goes to the store so
// out-of-process edits are observed; a store that cannot be read is treated
// as empty.
type Registry struct {
	mu    sync.RWMutex
	store Store
}

// New returns a Registry backed by store.
func New(store Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) load() map[string]string {
	entries, err := r.store.Load()
	if err != nil {
		slog.Debug("registry: load failed, treating as empty", slog.String("error", err.Error()))
		return map[string]string{}
	}
	if entries == nil {
		return map[string]string{}
	}
	return entries
}

// Snapshot returns a consistent copy of every entry.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.load())
}

// IsLocked reports whether name has an entry.
func (r *Registry) IsLocked(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.load()[name]
	return ok
}

// Lock sets the secret for name, overwriting any previous one. The entry is
// durable when Lock returns nil.
func (r *Registry) Lock(name, secret string) error {
	if !storage.ValidName(name) {
		return apperr.ErrInvalidName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Put(name, secret); err != nil {
		return fmt.Errorf("registry: lock %s: %w", name, err)
	}
	return nil
}

// Unlock removes the entry for name if secret matches. A missing entry or a
// mismatch returns apperr.ErrWrongSecret and leaves the registry untouched.
func (r *Registry) Unlock(name, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.load()[name]
	if !ok || !equal(stored, secret) {
		return apperr.ErrWrongSecret
	}
	if err := r.store.Delete(name); err != nil {
		return fmt.Errorf("registry: unlock %s: %w", name, err)
	}
	return nil
}

// Authorize allows unlocked files, and locked files only with the exact secret.
func (r *Registry) Authorize(name, secret string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.load()[name]
	if !ok {
		return true
	}
	return equal(stored, secret)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
