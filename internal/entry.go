// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/propindex/internal/api"
	"github.com/starford/propindex/internal/facetservice"
	"github.com/starford/propindex/internal/mcpserver"
	"github.com/starford/propindex/internal/sse"
	"github.com/starford/propindex/internal/watch"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.loggerTo(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("facet_keys", cfg.Facets.Keys),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := setup(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	broker := sse.NewBroker(cfg.SSE.Throttle())
	defer broker.Close()
	c.svc.OnRebuilt(func(s facetservice.Summary) {
		broker.PublishRebuilt(sse.Rebuilt{
			Generation: s.Generation,
			Keys:       s.Keys,
			Values:     s.Values,
			Files:      s.Files,
		})
	})

	c.initialRebuild(ctx)

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if c.svc.Generation() == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"building"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Rebuild the tree whenever notes change on disk.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			return watch.Watch(gCtx, c.store.Root(), cfg.Watch.Debounce(), logger, func(paths []string) {
				broker.PublishVaultChange(paths)
				if _, err := c.svc.Rebuild(gCtx); err != nil && gCtx.Err() == nil {
					logger.Warn("watch rebuild failed", slog.String("error", err.Error()))
				}
			})
		})
	}

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

// errShutdown cancels the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the facet tools over stdio. Logs go to stderr because
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.loggerTo(os.Stderr)
	slog.SetDefault(logger)

	c, err := setup(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	c.initialRebuild(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Watch.Enabled {
		go func() {
			err := watch.Watch(ctx, c.store.Root(), cfg.Watch.Debounce(), logger, func([]string) {
				if _, err := c.svc.Rebuild(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("watch rebuild failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	return mcpserver.New(c.svc, app.version).ServeStdio()
}

// PrintTree builds the tree once and prints it with counts.
func PrintTree(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.loggerTo(os.Stderr)

	c, err := setup(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.svc.Rebuild(ctx); err != nil {
		return err
	}
	return WriteTree(app.output, c.svc.Overview(), cfg.Facets.IncludeDescendants)
}
