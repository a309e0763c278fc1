// Package application assembles the store, metrics and service from a
// Config. Both the HTTP server and maintctl start from here.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/maintrack/internal/config"
	"github.com/JonMunkholm/maintrack/internal/core"
	_ "github.com/JonMunkholm/maintrack/internal/core/entities" // Register all entity kinds
	"github.com/JonMunkholm/maintrack/internal/metric"
	"github.com/JonMunkholm/maintrack/internal/storage/memstore"
	"github.com/JonMunkholm/maintrack/internal/storage/postgres"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Store   core.Store
	Service *core.Service
	Metrics *metric.Metrics

	// Postgres is nil when running on the in-memory store.
	Postgres *postgres.Store
}

// Open connects the configured store, applies the schema when it is
// PostgreSQL, and builds the service.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Metrics: metric.New(),
	}

	if cfg.Database.InMemory() {
		slog.Warn("DATABASE_URL not set, using in-memory store; data is lost on exit")
		app.Store = memstore.New()
	} else {
		pg, err := postgres.Open(ctx, postgres.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		app.Postgres = pg
		app.Store = pg
	}

	app.Service = core.NewService(app.Store, core.Options{
		MaxConcurrentImports: cfg.Upload.MaxConcurrent,
		ImportWait:           cfg.Upload.MaxWaitTime,
		ImportTimeout:        cfg.Upload.Timeout,
		AllocationRetries:    allocationRetries(cfg.IDs.AllocationRetries),
		Metrics:              app.Metrics,
	})

	slog.Info("entity kinds registered", "count", len(core.All()))
	return app, nil
}

// allocationRetries translates the config value, where 0 means no retries,
// into core.Options, where 0 means the default.
func allocationRetries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// PruneConfig returns the activity retention settings.
func (a *App) PruneConfig() core.PruneConfig {
	return core.PruneConfig{
		RetentionDays: a.Config.Activity.RetentionDays,
		BatchSize:     a.Config.Activity.BatchSize,
		Interval:      a.Config.Activity.Interval,
	}
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}
