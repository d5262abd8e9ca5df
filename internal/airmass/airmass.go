// Package airmass maps a target's altitude to the relative atmospheric path
// length along the line of sight, using the plane-parallel secant model.
package airmass

import "math"

// Unobservable is the airmass reported for targets at or below the horizon.
//
// It is a reserved marker, not a physical quantity. It is finite on purpose:
// any realistic threshold compares below it, so threshold filters exclude
// below-horizon targets without special-casing them. Do not replace it with
// +Inf or NaN.
const Unobservable = 99.0

// DefaultThreshold is the airmass limit applied when the caller gives none.
const DefaultThreshold = 2.5

// Airmass returns sec(z), z being the zenith distance, for a target at the
// given altitude in degrees. Targets at or below the horizon return
// Unobservable.
//
// No Bemporad or Kasten-Young refinement is applied, so values near the
// horizon are larger than the real atmosphere gives.
func Airmass(altitudeDeg float64) float64 {
	if math.IsNaN(altitudeDeg) || altitudeDeg <= 0 {
		return Unobservable
	}
	z := ZenithDistance(altitudeDeg) * math.Pi / 180
	return 1 / math.Cos(z)
}

// ZenithDistance returns 90° minus the altitude.
func ZenithDistance(altitudeDeg float64) float64 {
	return 90 - altitudeDeg
}

// IsUnobservable reports whether a is the below-horizon marker.
func IsUnobservable(a float64) bool {
	return a == Unobservable
}
