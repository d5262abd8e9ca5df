// Package filter runs catalog targets through the horizontal transform and
// the airmass model, and keeps those under an airmass limit.
//
// A pass either succeeds completely or fails without results: inputs are
// validated before any target is evaluated, and any bad target, threshold or
// site aborts the pass.
package filter

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/star/airmass/internal/metrics"
	"github.com/star/airmass/internal/observatory"
	"github.com/star/airmass/internal/sky"
	"github.com/star/airmass/internal/transform"
)

// Pipeline evaluates and filters catalogs. It holds no per-pass state and
// is safe for concurrent use.
type Pipeline struct {
	pool   *WorkerPool
	logger *slog.Logger
}

// NewPipeline creates a pipeline backed by a worker pool of cfg.Workers.
func NewPipeline(cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		pool:   NewWorkerPool(cfg.Workers, logger),
		logger: logger,
	}
}

// Evaluate computes the horizontal position and airmass of every catalog
// target, in catalog order, without filtering.
func (p *Pipeline) Evaluate(ctx context.Context, obs sky.Observatory, catalog []sky.Target, instant time.Time) ([]Result, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateCatalog(catalog); err != nil {
		return nil, err
	}
	return p.evaluate(ctx, obs, catalog, instant)
}

func (p *Pipeline) evaluate(ctx context.Context, obs sky.Observatory, catalog []sky.Target, instant time.Time) ([]Result, error) {
	instant = instant.UTC()

	// One sidereal time serves the whole catalog.
	lst := transform.LocalSiderealTime(instant, obs.Location.Longitude)

	start := time.Now()
	results, err := p.pool.EvaluateBatch(ctx, catalog, obs.Location, lst)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	below := 0
	for _, r := range results {
		if !r.Observable() {
			below++
		}
	}
	metrics.RecordEvaluation(duration, len(results), below)

	p.logger.Debug("catalog evaluated",
		"component", "filter",
		"observatory", obs.Name,
		"instant", instant.Format(time.RFC3339),
		"lst_hours", lst,
		"targets", len(results),
		"below_horizon", below,
		"workers", p.pool.Workers(),
		"duration_ms", duration.Milliseconds(),
	)
	return results, nil
}

// Filter evaluates req.Catalog and returns the targets whose airmass is at
// most req.Threshold, in catalog order.
func (p *Pipeline) Filter(ctx context.Context, req Request) ([]Result, error) {
	results, err := p.filter(ctx, req)
	if err != nil {
		metrics.RecordFilter(outcome(err), 0)
		p.logger.Debug("filter pass failed", "component", "filter", "observatory", req.Observatory.Name, "error", err)
		return nil, err
	}
	metrics.RecordFilter(metrics.OutcomeOK, len(results))
	return results, nil
}

func (p *Pipeline) filter(ctx context.Context, req Request) ([]Result, error) {
	if err := ValidateThreshold(req.Threshold); err != nil {
		return nil, err
	}
	if err := req.Observatory.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateCatalog(req.Catalog); err != nil {
		return nil, err
	}

	results, err := p.evaluate(ctx, req.Observatory, req.Catalog, req.Instant)
	if err != nil {
		return nil, err
	}
	return Retain(results, req.Threshold), nil
}

// FilterByName resolves the observatory first and filters the catalog
// against it. An unknown name fails with *sky.NotFoundError before any
// target is looked at.
func (p *Pipeline) FilterByName(ctx context.Context, resolver observatory.Resolver, name string, catalog []sky.Target, instant time.Time, threshold float64) ([]Result, error) {
	obs, err := resolver.Resolve(name)
	if err != nil {
		metrics.RecordFilter(outcome(err), 0)
		return nil, err
	}
	return p.Filter(ctx, Request{
		Observatory: obs,
		Catalog:     catalog,
		Instant:     instant,
		Threshold:   threshold,
	})
}

// Retain keeps the results with airmass at most threshold. Order is kept.
// Below-horizon results carry airmass.Unobservable and drop out for any
// realistic threshold.
func Retain(results []Result, threshold float64) []Result {
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Airmass <= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// Targets returns the targets of results, in order.
func Targets(results []Result) []sky.Target {
	targets := make([]sky.Target, len(results))
	for i, r := range results {
		targets[i] = r.Target
	}
	return targets
}

// ValidateThreshold rejects non-positive and NaN thresholds.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 {
		return sky.InvalidArgument("", "airmass threshold", threshold, "must be > 0")
	}
	return nil
}

// ValidateCatalog checks every target's domain and that names are unique.
func ValidateCatalog(catalog []sky.Target) error {
	seen := make(map[string]struct{}, len(catalog))
	for _, t := range catalog {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return sky.InvalidArgument(t.Name, "name", 0, "duplicate target name in catalog")
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, sky.ErrInvalidArgument):
		return metrics.OutcomeInvalid
	case errors.Is(err, sky.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return "error"
	}
}
