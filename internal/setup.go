package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/propindex/internal/facetservice"
	"github.com/starford/propindex/internal/source"
	"github.com/starford/propindex/internal/state"
	"github.com/starford/propindex/internal/storage"
)

// core holds the components every command shares.
type core struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *state.DB
	svc    *facetservice.Service
}

func (c *core) Close() error { return c.db.Close() }

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.output == nil {
		app.output = os.Stdout
	}
	return app, nil
}

// loggerTo returns the configured logger, or a JSON logger on w.
func (a *application) loggerTo(w io.Writer) *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// setup opens storage and state and builds the facet service. The caller
// owns the returned core and must Close it.
func setup(cfg *Config, logger *slog.Logger) (*core, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := state.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init state: %w", err)
	}

	svc := facetservice.New(source.NewVault(store, logger), db, facetservice.Options{
		Keys:               cfg.Facets.Keys,
		ExcludedFolders:    cfg.Facets.ExcludedFolders,
		IncludeDescendants: cfg.Facets.IncludeDescendants,
		ChunkSize:          cfg.Facets.ChunkSize,
		KeyCacheSize:       cfg.Facets.KeyCacheSize,
	}, logger)

	if !svc.Enabled() {
		logger.Warn("facets: no property keys configured, the tree stays empty")
	}
	return &core{cfg: cfg, logger: logger, store: store, db: db, svc: svc}, nil
}

// initialRebuild builds the first tree. A failure is logged; the service
// keeps serving an empty tree until the next successful rebuild.
func (c *core) initialRebuild(ctx context.Context) {
	if _, err := c.svc.Rebuild(ctx); err != nil {
		c.logger.Warn("initial rebuild failed", slog.String("error", err.Error()))
	}
}
