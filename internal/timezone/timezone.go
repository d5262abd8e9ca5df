// Package timezone finds the civil time zone of an observing site, so a
// local wall-clock reading can be converted without the caller supplying a
// UTC offset.
package timezone

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // zone rules without relying on the host's zoneinfo

	"github.com/ringsaturn/tzf"

	"github.com/star/airmass/internal/sky"
)

// Service looks up the IANA zone of a location.
type Service interface {
	Location(loc sky.GeodeticLocation) (*time.Location, error)
}

// finder implements Service using tzf. The polygon data is large, so it is
// loaded on first lookup and shared.
type finder struct {
	once   sync.Once
	finder tzf.F
	err    error
}

var shared = &finder{}

// Default returns the process-wide Service.
func Default() Service {
	return shared
}

func (f *finder) load() error {
	f.once.Do(func() {
		tf, err := tzf.NewDefaultFinder()
		if err != nil {
			f.err = fmt.Errorf("failed to initialize timezone finder: %w", err)
			return
		}
		f.finder = tf
	})
	return f.err
}

// Location returns the zone containing loc, e.g. "America/Chicago".
func (f *finder) Location(loc sky.GeodeticLocation) (*time.Location, error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	name := f.finder.GetTimezoneName(loc.Longitude, loc.Latitude)
	if name == "" {
		return nil, &sky.NotFoundError{
			Kind: "time zone",
			Name: fmt.Sprintf("%.4f,%.4f", loc.Latitude, loc.Longitude),
		}
	}
	zone, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading zone %s: %w", name, err)
	}
	return zone, nil
}

// SiteToUTC reads the wall-clock fields of local in the site's own zone,
// daylight saving included, and returns the UTC instant together with the
// offset that was applied in hours east of UTC.
func SiteToUTC(svc Service, local time.Time, loc sky.GeodeticLocation) (time.Time, float64, error) {
	zone, err := svc.Location(loc)
	if err != nil {
		return time.Time{}, 0, err
	}
	t := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), zone)
	_, offset := t.Zone()
	return t.UTC(), float64(offset) / 3600, nil
}
