// Package app assembles the tracker's services from configuration. Both the
// HTTP server and the CLI start here.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"compass.dev/tracker/internal/config"
	"compass.dev/tracker/internal/core"
	"compass.dev/tracker/internal/llm"
	"compass.dev/tracker/internal/metrics"
	"compass.dev/tracker/internal/store"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     *store.SQLiteStore
	Registry  *metrics.Registry
	LLM       llm.Client
	Tracker   *core.TrackerService
	Summaries *core.SummaryService
}

// New opens the database, builds the metric registry from
// metrics.available and connects the configured LLM provider.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	registry, err := metrics.NewRegistryFor(st, cfg.Metrics.Available)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to build metric registry: %w", err)
	}
	for _, name := range cfg.Metrics.Enabled {
		if !registry.IsRegistered(name) {
			st.Close()
			return nil, fmt.Errorf("metrics.enabled names %q which is not in metrics.available", name)
		}
	}

	client, err := llm.NewClient(ctx, cfg.LLM, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	resolver := core.NewMetricResolver(st, registry, cfg.Metrics.Enabled)
	summaries := core.NewSummaryService(resolver, st, client, cfg.LLM.Timeout, logger)
	tracker := core.NewTrackerService(st, st, resolver, summaries, logger)

	logger.Info("Tracker initialized",
		zap.String("database", cfg.Database.Path),
		zap.Strings("metrics", registry.Names()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", client.Model()))

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Registry:  registry,
		LLM:       client,
		Tracker:   tracker,
		Summaries: summaries,
	}, nil
}

// Close releases the LLM client and the database.
func (a *App) Close() error {
	if c, ok := a.LLM.(interface{ Close() }); ok {
		c.Close()
	}
	return a.Store.Close()
}
