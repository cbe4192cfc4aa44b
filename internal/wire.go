package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/starford/sefs/internal/catalog"
	"github.com/starford/sefs/internal/cluster"
	"github.com/starford/sefs/internal/embed"
	"github.com/starford/sefs/internal/extract"
	"github.com/starford/sefs/internal/fileservice"
	"github.com/starford/sefs/internal/graph"
	"github.com/starford/sefs/internal/pipeline"
	"github.com/starford/sefs/internal/registry"
	"github.com/starford/sefs/internal/storage"
)

// components is the wired dependency graph shared by every entry point.
type components struct {
	db        *catalog.DB
	fs        *storage.FS
	extractor *extract.Registry
	graphs    *graph.Store
	orch      *pipeline.Orchestrator
	svc       *fileservice.Service
	metrics   *prometheus.Registry
}

func (a *application) setup() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}
	return a.config, newLogger(out, a.config.App.LogLevel), nil
}

// newLogger initializes the structured JSON logger and makes it the default.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// build opens storage and wires the pipeline. notifier may be nil; onCycle
// hooks observe every finished cycle.
func build(cfg *Config, notifier fileservice.Notifier, onCycle ...func(pipeline.Result)) (*components, error) {
	if err := os.MkdirAll(cfg.Root.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create root dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Graph.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create graph dir: %w", err)
	}

	ex := extract.NewRegistry(extract.OCROptions{
		Enabled:  cfg.Extract.OCR.Enabled,
		Command:  cfg.Extract.OCR.Command,
		Language: cfg.Extract.OCR.Language,
	})

	fs, err := storage.NewFS(cfg.Root.Path,
		storage.WithFilter(ex.Supports),
		storage.WithExclude(cfg.Root.Exclude))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	var store registry.Store = db.Locks()
	if cfg.Registry.Backend == RegistryBackendJSON {
		store = registry.NewJSONFile(cfg.Registry.Path)
	}
	reg := registry.New(store)

	embedder, err := embed.New(cfg.Embedding.Options())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	graphs := graph.NewStore(cfg.Graph.Path)
	if err := graphs.Load(); err != nil {
		slog.Warn("previous graph not loaded", slog.String("path", cfg.Graph.Path), slog.String("error", err.Error()))
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []pipeline.Option{
		pipeline.WithDebounce(cfg.Pipeline.Debounce),
		pipeline.WithCycleTimeout(cfg.Pipeline.CycleTimeout),
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithMinTextLength(cfg.Pipeline.MinTextLength),
		pipeline.WithCatalog(db),
		pipeline.WithMetrics(pipeline.NewMetrics(promReg)),
	}
	for _, fn := range onCycle {
		opts = append(opts, pipeline.WithOnCycle(fn))
	}
	orch := pipeline.New(pipeline.Deps{
		FS:        fs,
		Extractor: ex,
		Embedder:  embedder,
		Clusterer: cluster.NewThreshold(cfg.Cluster.SimilarityThreshold, cfg.Cluster.MinClusterSize),
		Registry:  reg,
		Builder:   graph.NewBuilder(fs, cfg.Graph.ExposeSecrets),
		Graphs:    graphs,
	}, opts...)

	svcOpts := []fileservice.Option{
		fileservice.WithCatalog(db),
		fileservice.WithSupports(ex.Supports),
	}
	if notifier != nil {
		svcOpts = append(svcOpts, fileservice.WithNotifier(notifier))
	}

	return &components{
		db:        db,
		fs:        fs,
		extractor: ex,
		graphs:    graphs,
		orch:      orch,
		svc:       fileservice.New(fs, reg, graphs, orch, svcOpts...),
		metrics:   promReg,
	}, nil
}

// Close cancels in-flight cycles and closes the catalog.
func (c *components) Close() {
	c.orch.Close()
	if err := c.db.Close(); err != nil {
		slog.Warn("catalog close failed", slog.String("error", err.Error()))
	}
}
