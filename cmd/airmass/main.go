// Command airmass lists the catalog targets observable from a site at a
// given local time, below an airmass limit.
//
//	airmass -o CTMO -t 2019-04-10T15:14:59 --utc-offset -5
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/star/airmass/internal/catalog"
	"github.com/star/airmass/internal/config"
	"github.com/star/airmass/internal/filter"
	"github.com/star/airmass/internal/observatory"
	"github.com/star/airmass/internal/report"
	"github.com/star/airmass/internal/sky"
	"github.com/star/airmass/internal/timezone"
	"github.com/star/airmass/internal/transform"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "airmass:", err)
		code := 1
		if errors.Is(err, sky.ErrInvalidArgument) || errors.Is(err, sky.ErrNotFound) {
			code = 2
		}
		os.Exit(code)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(config.NewFlagSet("airmass"), args)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(stderr)

	extra, err := cfg.ExtraObservatories()
	if err != nil {
		return err
	}
	registry, err := observatory.NewBuiltinRegistry(extra...)
	if err != nil {
		return err
	}
	if cfg.Observatory == "" {
		return fmt.Errorf("%w: --observatory is required (one of %s)",
			sky.ErrInvalidArgument, strings.Join(registry.Names(), ", "))
	}

	instant, err := observationInstant(cfg, registry, timezone.Default())
	if err != nil {
		return err
	}

	cat, err := catalog.Open(ctx, cfg.Catalog, cfg.CatalogCacheDir, logger)
	if err != nil {
		return err
	}

	pipeline := filter.NewPipeline(filter.Config{Workers: cfg.Workers}, logger)

	var results []filter.Result
	if cfg.All {
		obs, rerr := registry.Resolve(cfg.Observatory)
		if rerr != nil {
			return rerr
		}
		results, err = pipeline.Evaluate(ctx, obs, cat.Targets, instant)
	} else {
		results, err = pipeline.FilterByName(ctx, registry, cfg.Observatory, cat.Targets, instant, cfg.Threshold)
	}
	if err != nil {
		return err
	}

	logger.Debug("pass complete",
		"observatory", cfg.Observatory,
		"instant", instant.Format(time.RFC3339),
		"catalog", cat.Source,
		"results", len(results),
	)

	if cfg.Format == "json" {
		return report.WriteJSON(stdout, results)
	}
	return report.WriteTable(stdout, results)
}

// observationInstant converts the configured local time to UTC, either with
// the fixed offset or in the observatory's own zone. No time means now.
func observationInstant(cfg *config.Config, registry observatory.Resolver, zones timezone.Service) (time.Time, error) {
	if cfg.Time == "" {
		return time.Now().UTC(), nil
	}
	local, err := transform.ParseLocal(cfg.Time)
	if err != nil {
		return time.Time{}, err
	}
	if !cfg.SiteTime {
		return transform.ToUTC(local, cfg.UTCOffset), nil
	}

	obs, err := registry.Resolve(cfg.Observatory)
	if err != nil {
		return time.Time{}, err
	}
	utc, _, err := timezone.SiteToUTC(zones, local, obs.Location)
	return utc, err
}
