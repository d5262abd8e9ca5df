// Package sky holds the value types shared by the airmass pipeline: observer
// locations, catalog targets and their equatorial and horizontal coordinates.
//
// All types are plain values. Nothing here is mutated after construction, so
// values may be shared freely between goroutines.
package sky

import (
	"math"
)

// GeodeticLocation is an observer's position on the WGS-84 ellipsoid.
type GeodeticLocation struct {
	Longitude float64 // degrees, east-positive, (-180, 180]
	Latitude  float64 // degrees, north-positive, [-90, 90]
	Height    float64 // meters above the ellipsoid
}

// NewGeodeticLocation validates the given coordinates and normalises the
// longitude into (-180, 180]. Longitudes in [0, 360) are accepted as input.
func NewGeodeticLocation(lonDeg, latDeg, heightM float64) (GeodeticLocation, error) {
	loc := GeodeticLocation{Longitude: lonDeg, Latitude: latDeg, Height: heightM}
	if err := checkLocation("", loc, true); err != nil {
		return GeodeticLocation{}, err
	}
	loc.Longitude = NormalizeLongitude(lonDeg)
	return loc, nil
}

// Validate reports whether l is a usable observer location. A location built
// by struct literal must already carry a normalised longitude.
func (l GeodeticLocation) Validate() error {
	return checkLocation("", l, false)
}

func checkLocation(key string, l GeodeticLocation, acceptWrapped bool) error {
	if !finite(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return invalid(key, "latitude", l.Latitude, "must be within [-90, 90] degrees")
	}
	if !finite(l.Longitude) {
		return invalid(key, "longitude", l.Longitude, "must be finite")
	}
	if acceptWrapped {
		if l.Longitude <= -180 || l.Longitude >= 360 {
			return invalid(key, "longitude", l.Longitude, "must be within (-180, 360) degrees")
		}
	} else if l.Longitude <= -180 || l.Longitude > 180 {
		return invalid(key, "longitude", l.Longitude, "must be within (-180, 180] degrees")
	}
	if !finite(l.Height) {
		return invalid(key, "height", l.Height, "must be finite")
	}
	return nil
}

// NormalizeLongitude maps any finite longitude into (-180, 180].
func NormalizeLongitude(lonDeg float64) float64 {
	lon := math.Mod(lonDeg, 360)
	if lon <= -180 {
		lon += 360
	} else if lon > 180 {
		lon -= 360
	}
	return lon
}

// Observatory is a named observing site.
type Observatory struct {
	Name     string
	Location GeodeticLocation
}

// Validate checks the observatory location, reporting errors against the
// observatory name.
func (o Observatory) Validate() error {
	if o.Name == "" {
		return invalid("", "name", 0, "observatory name is empty")
	}
	return checkLocation(o.Name, o.Location, false)
}

// EquatorialCoordinate is a fixed point on the celestial sphere.
// No proper motion is modelled.
type EquatorialCoordinate struct {
	RightAscension float64 // hours, [0, 24)
	Declination    float64 // degrees, [-90, 90]
}

// Validate checks both fields against their domains.
func (c EquatorialCoordinate) Validate() error {
	return checkCoordinate("", c)
}

func checkCoordinate(key string, c EquatorialCoordinate) error {
	if !finite(c.RightAscension) || c.RightAscension < 0 || c.RightAscension >= 24 {
		return invalid(key, "ra", c.RightAscension, "must be within [0, 24) hours")
	}
	if !finite(c.Declination) || c.Declination < -90 || c.Declination > 90 {
		return invalid(key, "dec", c.Declination, "must be within [-90, 90] degrees")
	}
	return nil
}

// Target is a single catalog entry. Name is the catalog key.
type Target struct {
	Name       string
	Coordinate EquatorialCoordinate
}

// Validate checks the target name and coordinate, naming the target in any
// returned error.
func (t Target) Validate() error {
	if t.Name == "" {
		return invalid("", "name", 0, "target name is empty")
	}
	return checkCoordinate(t.Name, t.Coordinate)
}

// HorizontalCoordinate is a target's position in the observer's local sky.
type HorizontalCoordinate struct {
	Altitude float64 // degrees, [-90, 90]
	Azimuth  float64 // degrees from north through east, [0, 360)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
