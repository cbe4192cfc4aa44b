// Package storage defines the managed-root file system abstraction.
package storage

import "github.com/starford/sefs/internal/models"

// Provider is the interface for managed-root file operations.
// Paths are relative to the root and slash-separated unless stated otherwise.
type Provider interface {
	// Root returns the absolute managed root.
	Root() string
	// Abs resolves a relative path to an absolute one, rejecting traversal.
	Abs(rel string) (string, error)
	// List returns every in-scope file under the root in lexical path order.
	List() ([]models.FileMeta, error)
	// Stat returns metadata for a single file.
	Stat(rel string) (models.FileMeta, error)
	// Find returns the first in-scope file whose basename equals name.
	Find(name string) (models.FileMeta, error)
	// Read returns the raw bytes of the file at rel.
	Read(rel string) ([]byte, error)
	// Write atomically writes content to rel.
	Write(rel string, content []byte) error
	// Move renames fromRel to toRel, creating parent folders. It never overwrites.
	Move(fromRel, toRel string) error
}
