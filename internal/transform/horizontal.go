// Package transform converts catalog coordinates into an observer's local sky.
//
// The chain is UTC → GMST → local sidereal time → hour angle → altitude and
// azimuth. Only geometric positions are produced: no refraction, precession,
// nutation or aberration is applied, which keeps the result at the accuracy
// of a mean-sidereal-time, fixed-equinox model.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3-4.
package transform

import (
	"math"
	"time"

	"github.com/star/airmass/internal/sky"
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// degenerateAzimuth bounds the horizontal-plane components below which the
// azimuth is undefined (observer or target at a pole, or target at zenith).
const degenerateAzimuth = 1e-12

// ToHorizontal computes the altitude and azimuth of coord as seen from loc at
// UTC instant t.
func ToHorizontal(coord sky.EquatorialCoordinate, loc sky.GeodeticLocation, t time.Time) sky.HorizontalCoordinate {
	return ToHorizontalWithLST(coord, loc, LocalSiderealTime(t, loc.Longitude))
}

// ToHorizontalWithLST is ToHorizontal with a precomputed local sidereal time
// (hours). Useful when evaluating many targets from one site at one instant.
//
//	sin(alt) = sin(δ)·sin(φ) + cos(δ)·cos(φ)·cos(H)
//	sin(A)·cos(alt) = -cos(δ)·sin(H)
//	cos(A)·cos(alt) = sin(δ)·cos(φ) - cos(δ)·sin(φ)·cos(H)
//
// with A measured from north through east.
func ToHorizontalWithLST(coord sky.EquatorialCoordinate, loc sky.GeodeticLocation, lstHours float64) sky.HorizontalCoordinate {
	ha := HourAngle(lstHours, coord.RightAscension) * deg2rad
	dec := coord.Declination * deg2rad
	lat := loc.Latitude * deg2rad

	sinHA, cosHA := math.Sincos(ha)
	sinDec, cosDec := math.Sincos(dec)
	sinLat, cosLat := math.Sincos(lat)

	// Clamp to absorb overshoot past ±1 near the poles of the identity.
	sinAlt := sinDec*sinLat + cosDec*cosLat*cosHA
	sinAlt = math.Max(-1, math.Min(1, sinAlt))
	alt := math.Asin(sinAlt) * rad2deg

	y := -cosDec * sinHA
	x := sinDec*cosLat - cosDec*sinLat*cosHA

	var az float64
	if math.Abs(x) > degenerateAzimuth || math.Abs(y) > degenerateAzimuth {
		// Mod after the shift also folds -0 and 360-ε rounding onto 0.
		az = math.Mod(math.Atan2(y, x)*rad2deg+360, 360)
	}

	return sky.HorizontalCoordinate{
		Altitude: alt,
		Azimuth:  az,
	}
}
