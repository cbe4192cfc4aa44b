// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sefs/internal/api"
	"github.com/starford/sefs/internal/mcpserver"
	"github.com/starford/sefs/internal/pipeline"
	"github.com/starford/sefs/internal/sse"
	"github.com/starford/sefs/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root_path", cfg.Root.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("graph_path", cfg.Graph.Path),
		slog.String("embedding_provider", cfg.Embedding.Provider),
		slog.String("registry_backend", cfg.Registry.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.Pipeline.Debounce)
	defer broker.Close()

	c, err := build(cfg, broker, func(res pipeline.Result) {
		broker.Publish(sse.Event{Type: sse.TypeCycleFinished, Data: res})
		if res.Outcome == pipeline.OutcomeCompleted {
			broker.Publish(sse.Event{Type: sse.TypeGraphUpdated, Data: map[string]string{"cycle_id": res.ID}})
		}
	})
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("Extractors registered", slog.Any("extensions", c.extractor.Extensions()))

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if c.graphs.Current() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"starting"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(c.metrics, promhttp.HandlerOpts{}))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)
	api.MountLegacy(r, c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Debounce scheduler.
	g.Go(func() error {
		return c.orch.Run(gCtx)
	})

	// File watcher: every change asks for a cycle and is pushed to SSE clients.
	g.Go(func() error {
		err := watch.Watch(gCtx, c.fs.Root(), c.extractor.Supports, logger, func(kind, path string) {
			c.orch.RequestReprocess()
			broker.PublishFileEvent(kind, path)
		})
		if err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	// Initial cycle so the graph reflects the tree before the first change.
	g.Go(func() error {
		res, err := c.orch.RunCycle(gCtx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pipeline.ErrClosed) {
			logger.Warn("initial cycle failed", slog.String("error", err.Error()))
			return nil
		}
		logger.Info("initial cycle finished",
			slog.String("cycle_id", res.ID),
			slog.String("outcome", string(res.Outcome)))
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Stops the scheduler, watcher and in-flight cycle.
		c.orch.Close()
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the shutdown goroutine has finished, so
// the scheduler and watcher return.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr. The
// scheduler runs in the background so imported files get organized.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	_, logger, err := app.setup()
	if err != nil {
		return err
	}

	c, err := build(app.config, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := c.orch.Run(ctx); err != nil {
			logger.Warn("scheduler stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting on stdio",
		slog.String("root_path", app.config.Root.Path),
		slog.Any("extensions", c.extractor.Extensions()))
	return mcpserver.New(c.svc, c.extractor.Extensions()).ServeStdio()
}

// RunOnce runs a single cycle and writes its result as JSON to out.
func RunOnce(ctx context.Context, out io.Writer, opts ...Option) error {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	if _, _, err := app.setup(); err != nil {
		return err
	}

	c, err := build(app.config, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.orch.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("cycle: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if res.Outcome == pipeline.OutcomeFailed {
		return fmt.Errorf("cycle %s failed: %s", res.ID, res.Error)
	}
	return nil
}
