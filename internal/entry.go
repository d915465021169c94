// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/corrander/vellum/internal/api"
	"github.com/corrander/vellum/internal/category"
	"github.com/corrander/vellum/internal/docservice"
	"github.com/corrander/vellum/internal/engine"
	"github.com/corrander/vellum/internal/loader"
	"github.com/corrander/vellum/internal/mcpserver"
	"github.com/corrander/vellum/internal/sse"
	"github.com/corrander/vellum/internal/storage"
	"github.com/corrander/vellum/internal/store"
)

// components holds the wired application graph. close releases the store.
type components struct {
	cfg    *Config
	logger *slog.Logger
	db     *store.DB
	eng    *engine.Engine
	svc    *docservice.Service
	broker *sse.Broker
	roots  []string
}

func (c *components) close() {
	if c.broker != nil {
		c.broker.Close()
	}
	_ = c.db.Close()
}

// build wires the full component graph from options: storage, category
// resolver, loader, store, engine, service. withBroker controls whether
// an SSE broker is attached to the engine's event callback.
func build(opts []Option, withBroker bool) (*components, error) {
	app := &application{logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	// Ensure workspace directory exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	fs, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	cats, err := category.New(cfg.Workspace.Categories)
	if err != nil {
		return nil, fmt.Errorf("init categories: %w", err)
	}

	ld, err := loader.New(fs, loader.Roots{
		CommandRoots: cfg.Workspace.CommandRoots,
		PlanRoot:     cfg.Workspace.PlanRoot,
		Extension:    cfg.Workspace.Extension,
	}, cats)
	if err != nil {
		return nil, fmt.Errorf("init loader: %w", err)
	}

	// A root that cannot be created is a fatal configuration error.
	if err := ld.EnsureLayout(); err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	var broker *sse.Broker
	var cb engine.EventCallback
	if withBroker {
		broker = sse.NewBroker(2 * time.Second)
		cb = func(outcome store.Outcome, name string) {
			broker.PublishDocEvent(string(outcome), name)
		}
	}

	eng := engine.New(ld, db, fs, logger, cb)
	svc := docservice.NewService(db, eng)

	roots := append([]string{}, cfg.Workspace.CommandRoots...)
	roots = append(roots, cfg.Workspace.PlanRoot)

	return &components{
		cfg:    cfg,
		logger: logger,
		db:     db,
		eng:    eng,
		svc:    svc,
		broker: broker,
		roots:  roots,
	}, nil
}

// Run starts the long-running server: initial sync, HTTP API, SSE, and
// (when enabled) the workspace watcher.
func Run(ctx context.Context, opts ...Option) error {
	c, err := build(opts, true)
	if err != nil {
		return err
	}
	defer c.close()

	cfg, logger := c.cfg, c.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Run initial sync. A consistency failure is fatal; anything else is
	// already folded into the summary.
	if _, err := c.eng.Sync(ctx); err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Workspace.Watch {
		g.Go(func() error {
			return engine.Watch(gCtx, c.eng, c.roots, cfg.Workspace.Extension, logger)
		})
	}

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunSync performs one sync batch and prints the summary as JSON.
func RunSync(ctx context.Context, opts ...Option) error {
	c, err := build(append(opts, WithLogOutput(os.Stderr)), false)
	if err != nil {
		return err
	}
	defer c.close()

	summary, err := c.eng.Sync(ctx)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

// RunFlatten projects the store back onto disk and prints the summary.
func RunFlatten(ctx context.Context, opts ...Option) error {
	c, err := build(append(opts, WithLogOutput(os.Stderr)), false)
	if err != nil {
		return err
	}
	defer c.close()

	summary, err := c.eng.Flatten(ctx)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	c, err := build(append(opts, WithLogOutput(os.Stderr)), false)
	if err != nil {
		return err
	}
	defer c.close()

	return mcpserver.New(c.svc).ServeStdio()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
