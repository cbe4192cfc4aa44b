// Package pipeline runs the scan → extract → embed → cluster → organise →
// graph cycle with single-flight execution and debounced triggering.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/sefs/internal/catalog"
	"github.com/starford/sefs/internal/cluster"
	"github.com/starford/sefs/internal/embed"
	"github.com/starford/sefs/internal/graph"
	"github.com/starford/sefs/internal/organize"
	"github.com/starford/sefs/internal/registry"
	"github.com/starford/sefs/internal/storage"
)

// ErrClosed is returned by RunCycle after Close.
var ErrClosed = errors.New("pipeline: orchestrator closed")

// Defaults applied when options are not given.
const (
	DefaultDebounce      = 2 * time.Second
	DefaultWorkers       = 4
	DefaultMinTextLength = 10
)

// Extractor returns the text of the file at an absolute path.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Deps are the collaborators a cycle needs.
type Deps struct {
	FS        storage.Provider
	Extractor Extractor
	Embedder  embed.Provider
	Clusterer cluster.Provider
	Registry  *registry.Registry
	Builder   *graph.Builder
	Graphs    *graph.Store
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDebounce sets the quiet window before a requested cycle runs.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) { o.debounce = d }
}

// WithCycleTimeout bounds a single cycle. Zero means no bound.
func WithCycleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.cycleTimeout = d }
}

// WithWorkers bounds concurrent extraction and embedding.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// WithMinTextLength sets the minimum trimmed rune count for a file to be embedded.
func WithMinTextLength(n int) Option {
	return func(o *Orchestrator) { o.minTextLength = n }
}

// WithCatalog records cycles and the placed-file catalog.
func WithCatalog(c catalog.Catalog) Option {
	return func(o *Orchestrator) { o.catalog = c }
}

// WithMetrics exports cycle metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithOnCycle registers a callback invoked after every cycle.
func WithOnCycle(fn func(Result)) Option {
	return func(o *Orchestrator) { o.onCycle = append(o.onCycle, fn) }
}

// flight is one pending or running cycle shared by every caller that joined it.
type flight struct {
	done   chan struct{}
	result Result
	err    error
}

// Orchestrator owns cycle execution. At most one cycle runs at a time and at
// most one follow-up is queued behind it.
type Orchestrator struct {
	deps      Deps
	organizer *organize.Organizer

	catalog catalog.Catalog
	metrics *Metrics
	onCycle []func(Result)

	debounce      time.Duration
	cycleTimeout  time.Duration
	workers       int
	minTextLength int

	wake        chan struct{}
	lastRequest atomic.Int64

	mu      sync.Mutex
	running *flight
	queued  *flight
	closed  bool

	life context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// New creates an Orchestrator. Call Close to cancel in-flight work.
func New(deps Deps, opts ...Option) *Orchestrator {
	life, stop := context.WithCancel(context.Background())
	o := &Orchestrator{
		deps:          deps,
		organizer:     organize.NewOrganizer(deps.FS),
		debounce:      DefaultDebounce,
		workers:       DefaultWorkers,
		minTextLength: DefaultMinTextLength,
		wake:          make(chan struct{}, 1),
		life:          life,
		stop:          stop,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}

// RunCycle runs a cycle, or joins the single queued follow-up if one is
// already running, and waits for it. A cancelled ctx stops the wait only;
// the cycle itself is bound to the orchestrator lifetime.
func (o *Orchestrator) RunCycle(ctx context.Context) (Result, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Result{}, ErrClosed
	}
	var f *flight
	switch {
	case o.running == nil:
		f = &flight{done: make(chan struct{})}
		o.running = f
		o.wg.Add(1)
		go o.drive(f)
	case o.queued != nil:
		f = o.queued
	default:
		f = &flight{done: make(chan struct{})}
		o.queued = f
	}
	o.mu.Unlock()

	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// drive executes f and then every follow-up queued while it ran.
func (o *Orchestrator) drive(f *flight) {
	defer o.wg.Done()
	for f != nil {
		f.result, f.err = o.cycle()
		close(f.done)

		o.mu.Lock()
		f = o.queued
		o.queued = nil
		o.running = f
		o.mu.Unlock()
	}
}

func (o *Orchestrator) cycle() (Result, error) {
	ctx := o.life
	if o.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cycleTimeout)
		defer cancel()
	}

	res, err := o.execute(ctx)
	o.record(res)
	return res, err
}

func (o *Orchestrator) record(res Result) {
	attrs := []any{
		slog.String("cycle_id", res.ID),
		slog.String("outcome", string(res.Outcome)),
		slog.Int("scanned", res.Scanned),
		slog.Int("embedded", res.Embedded),
		slog.Int("clusters", res.Clusters),
		slog.Int("moved", res.Moved),
		slog.Int("move_failures", res.MoveFailures),
		slog.Duration("duration", res.Duration()),
	}
	if res.Error != "" {
		attrs = append(attrs, slog.String("error", res.Error))
		slog.Warn("pipeline: cycle finished", attrs...)
	} else {
		slog.Info("pipeline: cycle finished", attrs...)
	}

	o.metrics.observe(res)
	if o.catalog != nil {
		err := o.catalog.RecordCycle(catalog.CycleRow{
			ID:           res.ID,
			StartedAt:    res.StartedAt,
			FinishedAt:   res.FinishedAt,
			Outcome:      string(res.Outcome),
			Scanned:      res.Scanned,
			Embedded:     res.Embedded,
			Clusters:     res.Clusters,
			Moved:        res.Moved,
			MoveFailures: res.MoveFailures,
			Error:        res.Error,
		})
		if err != nil {
			slog.Warn("pipeline: record cycle failed", slog.String("error", err.Error()))
		}
	}
	for _, fn := range o.onCycle {
		fn(res)
	}
}

// Close cancels the running cycle at its next checkpoint, fails queued
// callers and waits for the driver goroutine.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.stop()
	o.wg.Wait()
}
