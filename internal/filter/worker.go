package filter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/star/airmass/internal/airmass"
	"github.com/star/airmass/internal/sky"
	"github.com/star/airmass/internal/transform"
)

// evaluateJob is a unit of work for the worker pool.
type evaluateJob struct {
	index  int
	target sky.Target
}

// WorkerPool evaluates catalog targets on a fixed number of goroutines.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// EvaluateBatch computes horizontal coordinates and airmass for every target
// as seen from loc at the given local sidereal time.
//
// Each result is written to its catalog index, so the output order matches
// the input order whatever order the workers finish in. On cancellation no
// results are returned.
func (wp *WorkerPool) EvaluateBatch(ctx context.Context, targets []sky.Target, loc sky.GeodeticLocation, lstHours float64) ([]Result, error) {
	if len(targets) == 0 {
		return []Result{}, nil
	}

	workers := min(wp.workers, len(targets))
	out := make([]Result, len(targets))
	jobs := make(chan evaluateJob, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				out[job.index] = evaluateSingle(job.target, loc, lstHours)
			}
		}()
	}

	// Feed jobs; stop early on cancellation.
	go func() {
		defer close(jobs)
		for i, t := range targets {
			select {
			case jobs <- evaluateJob{index: i, target: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		wp.logger.Debug("evaluation cancelled", "component", "filter", "targets", len(targets), "error", err)
		return nil, err
	}
	return out, nil
}

// evaluateSingle transforms one target and derives its airmass.
func evaluateSingle(t sky.Target, loc sky.GeodeticLocation, lstHours float64) Result {
	hz := transform.ToHorizontalWithLST(t.Coordinate, loc, lstHours)
	return Result{
		Target:     t,
		Horizontal: hz,
		Airmass:    airmass.Airmass(hz.Altitude),
	}
}
