package filter

import (
	"time"

	"github.com/star/airmass/internal/airmass"
	"github.com/star/airmass/internal/sky"
)

// Result is one evaluated target. Results are produced per pass and are not
// retained by the pipeline.
type Result struct {
	Target     sky.Target
	Horizontal sky.HorizontalCoordinate
	Airmass    float64
}

// Observable reports whether the target is above the horizon.
func (r Result) Observable() bool {
	return !airmass.IsUnobservable(r.Airmass)
}

// Request describes one filter pass: a site, an ordered catalog, a UTC
// instant and the airmass limit.
type Request struct {
	Observatory sky.Observatory
	Catalog     []sky.Target
	Instant     time.Time
	Threshold   float64
}

// NewRequest builds a Request using airmass.DefaultThreshold.
func NewRequest(obs sky.Observatory, catalog []sky.Target, instant time.Time) Request {
	return Request{
		Observatory: obs,
		Catalog:     catalog,
		Instant:     instant,
		Threshold:   airmass.DefaultThreshold,
	}
}

// Config holds pipeline configuration.
type Config struct {
	Workers int // evaluation goroutines (default: runtime.NumCPU())
}
