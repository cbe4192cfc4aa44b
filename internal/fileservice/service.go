// Package fileservice implements the control surface shared by the HTTP and
// MCP transports: locking, opening, graph retrieval, search and import.
package fileservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/sefs/internal/apperr"
	"github.com/starford/sefs/internal/catalog"
	"github.com/starford/sefs/internal/models"
	"github.com/starford/sefs/internal/pipeline"
	"github.com/starford/sefs/internal/registry"
	"github.com/starford/sefs/internal/storage"
)

// MaxImportSize bounds files accepted by ImportFile.
const MaxImportSize = 50 << 20

// Cycler runs and schedules pipeline cycles.
type Cycler interface {
	RunCycle(ctx context.Context) (pipeline.Result, error)
	RequestReprocess()
}

// GraphSource returns the current graph artifact.
type GraphSource interface {
	Current() *models.Graph
	Raw() ([]byte, string)
}

// Notifier receives file-level events for live clients.
type Notifier interface {
	PublishFileEvent(kind, path string)
}

// Service coordinates the registry, managed root and pipeline.
type Service struct {
	fs       storage.Provider
	registry *registry.Registry
	graphs   GraphSource
	cycles   Cycler
	catalog  catalog.Catalog
	notifier Notifier
	supports func(name string) bool
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog enables Search and Cycles.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithNotifier publishes lock and import events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSupports restricts ImportFile to names accepted by fn.
func WithSupports(fn func(name string) bool) Option {
	return func(s *Service) { s.supports = fn }
}

// New creates a new file service.
func New(fs storage.Provider, reg *registry.Registry, graphs GraphSource, cycles Cycler, opts ...Option) *Service {
	s := &Service{
		fs:       fs,
		registry: reg,
		graphs:   graphs,
		cycles:   cycles,
		supports: func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockFile stores secret for name and forces a resync so the graph reflects
// the new state before returning.
func (s *Service) LockFile(ctx context.Context, name, secret string) (pipeline.Result, error) {
	if secret == "" {
		return pipeline.Result{}, apperr.ErrEmptySecret
	}
	if err := s.registry.Lock(name, secret); err != nil {
		return pipeline.Result{}, err
	}
	s.notify("locked", name)
	return s.resyncAfterMutation(ctx, "lock", name), nil
}

// UnlockFile removes the lock on name when secret matches, then forces a
// resync. A mismatch returns apperr.ErrWrongSecret.
func (s *Service) UnlockFile(ctx context.Context, name, secret string) (pipeline.Result, error) {
	if !storage.ValidName(name) {
		return pipeline.Result{}, apperr.ErrInvalidName
	}
	if err := s.registry.Unlock(name, secret); err != nil {
		return pipeline.Result{}, err
	}
	s.notify("unlocked", name)
	return s.resyncAfterMutation(ctx, "unlock", name), nil
}

// resyncAfterMutation runs a cycle; the mutation already succeeded, so a
// failed cycle is logged and reported through the result only.
func (s *Service) resyncAfterMutation(ctx context.Context, op, name string) pipeline.Result {
	res, err := s.cycles.RunCycle(ctx)
	if err != nil {
		slog.Warn("fileservice: resync failed",
			slog.String("op", op),
			slog.String("file", name),
			slog.String("error", err.Error()))
	}
	return res
}

// OpenFile checks the registry for name (never the cached graph) and then
// locates the file under the root. It returns apperr.ErrDenied or
// apperr.ErrNotFound.
func (s *Service) OpenFile(_ context.Context, name, secret string) (models.FileMeta, error) {
	if !storage.ValidName(name) {
		return models.FileMeta{}, apperr.ErrInvalidName
	}
	if !s.registry.Authorize(name, secret) {
		return models.FileMeta{}, apperr.ErrDenied
	}
	meta, err := s.fs.Find(name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.FileMeta{}, apperr.ErrNotFound
		}
		return models.FileMeta{}, fmt.Errorf("fileservice: open %s: %w", name, err)
	}
	return meta, nil
}

// FetchGraph returns the current artifact and its encoded form with ETag.
func (s *Service) FetchGraph(_ context.Context) (*models.Graph, []byte, string, error) {
	g := s.graphs.Current()
	if g == nil {
		return nil, nil, "", apperr.ErrNotReady
	}
	raw, etag := s.graphs.Raw()
	return g, raw, etag, nil
}

// Resync runs a cycle now and waits for it.
func (s *Service) Resync(ctx context.Context) (pipeline.Result, error) {
	return s.cycles.RunCycle(ctx)
}

// Search queries the file catalog of the last completed cycle.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	if s.catalog == nil || query == "" {
		return []catalog.SearchResult{}, nil
	}
	res, err := s.catalog.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []catalog.SearchResult{}
	}
	return res, nil
}

// Cycles returns recent cycle history, newest first.
func (s *Service) Cycles(_ context.Context, limit int) ([]catalog.CycleRow, error) {
	if s.catalog == nil {
		return []catalog.CycleRow{}, nil
	}
	rows, err := s.catalog.ListCycles(limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []catalog.CycleRow{}
	}
	return rows, nil
}

// ImportFile saves data as name at the top of the managed root and schedules
// a cycle. Basenames are identities, so a name already present anywhere under
// the root is rejected.
func (s *Service) ImportFile(_ context.Context, name string, data []byte) (models.FileMeta, error) {
	if !storage.ValidName(name) {
		return models.FileMeta{}, apperr.ErrInvalidName
	}
	if !s.supports(name) {
		return models.FileMeta{}, apperr.ErrUnsupported
	}
	if len(data) > MaxImportSize {
		return models.FileMeta{}, apperr.ErrTooLarge
	}
	if _, err := s.fs.Find(name); err == nil {
		return models.FileMeta{}, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return models.FileMeta{}, err
	}
	if err := s.fs.Write(name, data); err != nil {
		return models.FileMeta{}, fmt.Errorf("fileservice: import %s: %w", name, err)
	}
	meta, err := s.fs.Stat(name)
	if err != nil {
		return models.FileMeta{}, err
	}
	s.notify("created", name)
	s.cycles.RequestReprocess()
	return meta, nil
}

func (s *Service) notify(kind, name string) {
	if s.notifier != nil {
		s.notifier.PublishFileEvent(kind, name)
	}
}
