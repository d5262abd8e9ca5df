package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/star/airmass/internal/sky"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// ToUTC converts a local wall-clock reading to UTC using a fixed offset in
// hours (east of Greenwich positive, e.g. -5 for CDT).
//
// Only the wall-clock fields of local are used; its Location is ignored and
// no time zone database is consulted. DST is the caller's business.
func ToUTC(local time.Time, utcOffsetHours float64) time.Time {
	wall := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
	offset := time.Duration(math.Round(utcOffsetHours * float64(time.Hour)))
	return wall.Add(-offset)
}

// localLayouts are the accepted wall-clock forms. None carries a zone; the
// offset is always supplied separately.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseLocal parses a zone-less local wall-clock reading. Malformed input
// matches sky.ErrInvalidArgument.
func ParseLocal(s string) (time.Time, error) {
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q: want local wall clock like %s",
		sky.ErrInvalidArgument, s, localLayouts[0])
}

// JulianDate converts a time.Time (UTC) to Julian Date.
// Uses the standard astronomical algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Adjust year/month for Jan/Feb (treat as months 13/14 of previous year).
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// gmstSeconds returns Greenwich Mean Sidereal Time in seconds of time,
// normalised to [0, 86400).
//
// IAU-82 model (Vallado Eq 3-47):
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// where T is Julian centuries of UT1 from J2000.0. UT1 is taken equal to UTC.
func gmstSeconds(t time.Time) float64 {
	tUT1 := (JulianDate(t) - j2000) / 36525.0

	// 876600h = 876600 * 3600 = 3155760000 seconds.
	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec
}

// GMST calculates Greenwich Mean Sidereal Time in radians, [0, 2π).
func GMST(t time.Time) float64 {
	return gmstSeconds(t) / 86400.0 * 2.0 * math.Pi
}

// GMSTHours calculates Greenwich Mean Sidereal Time in hours, [0, 24).
func GMSTHours(t time.Time) float64 {
	return gmstSeconds(t) / 3600.0
}

// LocalSiderealTime returns the mean sidereal time in hours, [0, 24), at the
// given east-positive longitude (degrees).
func LocalSiderealTime(t time.Time, lonDeg float64) float64 {
	return normalizeHours(GMSTHours(t) + lonDeg/15.0)
}

// HourAngle returns the hour angle in degrees, [-180, 180], of a right
// ascension (hours) at the given local sidereal time (hours).
// Positive values are west of the meridian.
func HourAngle(lstHours, raHours float64) float64 {
	ha := math.Mod((lstHours-raHours)*15.0, 360.0)
	if ha > 180 {
		ha -= 360
	} else if ha < -180 {
		ha += 360
	}
	return ha
}

func normalizeHours(h float64) float64 {
	h = math.Mod(h, 24.0)
	if h < 0 {
		h += 24.0
	}
	if h >= 24.0 {
		h = 0
	}
	return h
}
