package main

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

	"github.com/star/airmass/internal/api"
	"github.com/star/airmass/internal/auth"
	"github.com/star/airmass/internal/catalog"
	"github.com/star/airmass/internal/config"
	"github.com/star/airmass/internal/filter"
	"github.com/star/airmass/internal/metrics"
	"github.com/star/airmass/internal/observatory"
	"github.com/star/airmass/internal/timezone"
)

func main() {
	cfg, err := config.Load(config.NewFlagSet("airmassd"), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "airmassd:", err)
		os.Exit(2)
	}
	logger := cfg.NewLogger(os.Stdout)

	extra, err := cfg.ExtraObservatories()
	if err != nil {
		logger.Error("invalid observatory configuration", "error", err)
		os.Exit(1)
	}
	registry, err := observatory.NewBuiltinRegistry(extra...)
	if err != nil {
		logger.Error("invalid observatory configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("observatories registered", "count", registry.Len(), "names", registry.Names())

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := catalog.NewStore()
	if err := reloadCatalog(ctx, cfg, store, logger); err != nil {
		// Stay up unready rather than exit; a later refresh may succeed.
		logger.Error("initial catalog load failed", "source", cfg.Catalog, "error", err)
	}

	pipeline := filter.NewPipeline(filter.Config{Workers: cfg.Workers}, logger)
	metrics.SetPipelineWorkers(cfg.Workers)

	srv := api.NewServer(api.Options{
		Addr:         cfg.HTTP.Addr,
		Auth:         auth.Config{Enabled: cfg.Auth.Enabled, Token: cfg.Auth.Token},
		MaxPerClient: cfg.HTTP.MaxPerClient,
		TrustProxy:   cfg.HTTP.TrustProxy,
	}, api.Deps{
		Pipeline:      pipeline,
		Observatories: registry,
		Catalog:       store,
		Zones:         timezone.Default(),
	}, logger)

	if cfg.CatalogRefresh > 0 {
		go refreshCatalog(ctx, cfg, store, logger)
	}

	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTP.Addr,
			"auth_enabled", cfg.Auth.Enabled,
			"workers", cfg.Workers,
			"catalog_refresh", cfg.CatalogRefresh.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// reloadCatalog loads the configured catalog and swaps it into store. The
// previous catalog stays in place on failure.
func reloadCatalog(ctx context.Context, cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
	loadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	c, err := catalog.Open(loadCtx, cfg.Catalog, cfg.CatalogCacheDir, logger)
	if err != nil {
		return err
	}
	store.Set(c)
	metrics.SetCatalogTargets(len(c.Targets))
	logger.Info("catalog loaded",
		"component", "catalog",
		"source", c.Source,
		"targets", len(c.Targets),
		"loaded_at", c.LoadedAt.UTC().Format(time.RFC3339),
	)
	return nil
}

func refreshCatalog(ctx context.Context, cfg *config.Config, store *catalog.Store, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.CatalogRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := reloadCatalog(ctx, cfg, store, logger); err != nil {
				logger.Warn("catalog refresh failed, keeping current catalog", "component", "catalog", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
