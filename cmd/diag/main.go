// Command diag prints the intermediate values of one filter pass: Julian
// date and sidereal time from three independent implementations, then the
// hour angle, altitude, azimuth and airmass of every catalog target.
//
//	diag -o CTMO -t 2019-04-10T15:14:59 --utc-offset -5
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"

	"github.com/star/airmass/internal/airmass"
	"github.com/star/airmass/internal/catalog"
	"github.com/star/airmass/internal/config"
	"github.com/star/airmass/internal/observatory"
	"github.com/star/airmass/internal/transform"
)

func main() {
	cfg, err := config.Load(config.NewFlagSet("diag"), os.Args[1:])
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	registry, err := observatory.NewBuiltinRegistry()
	if err != nil {
		fmt.Println("ERROR building registry:", err)
		os.Exit(1)
	}
	name := cfg.Observatory
	if name == "" {
		name = "CTMO"
	}
	obs, err := registry.Resolve(name)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	instant := time.Now().UTC()
	if cfg.Time != "" {
		local, err := transform.ParseLocal(cfg.Time)
		if err != nil {
			fmt.Println("ERROR:", err)
			os.Exit(1)
		}
		instant = transform.ToUTC(local, cfg.UTCOffset)
	}

	cat, err := catalog.Open(context.Background(), cfg.Catalog, cfg.CatalogCacheDir, logger)
	if err != nil {
		fmt.Println("ERROR loading catalog:", err)
		os.Exit(1)
	}

	fmt.Printf("Site %s: lon %.6f lat %.6f h %.0fm\n",
		obs.Name, obs.Location.Longitude, obs.Location.Latitude, obs.Location.Height)
	fmt.Printf("Instant: %s\n", instant.Format(time.RFC3339))

	jd := transform.JulianDate(instant)
	fmt.Printf("\nJulian date   airmass %.6f  meeus %.6f\n", jd, julian.TimeToJD(instant))

	gmst := transform.GMSTHours(instant)
	gst := satellite.GSTimeFromDate(instant.Year(), int(instant.Month()), instant.Day(),
		instant.Hour(), instant.Minute(), instant.Second())
	meeusGMST := float64(sidereal.Mean(julian.TimeToJD(instant))) / 3600
	fmt.Printf("GMST (h)      airmass %.6f  go-satellite %.6f  meeus %.6f\n",
		gmst, gst*12/math.Pi, meeusGMST)

	lst := transform.LocalSiderealTime(instant, obs.Location.Longitude)
	fmt.Printf("LST (h)       %.6f\n\n", lst)

	fmt.Printf("%-12s %9s %9s %9s %9s\n", "target", "ha_deg", "alt_deg", "az_deg", "airmass")
	kept := 0
	for _, t := range cat.Targets {
		ha := transform.HourAngle(lst, t.Coordinate.RightAscension)
		hz := transform.ToHorizontalWithLST(t.Coordinate, obs.Location, lst)
		am := airmass.Airmass(hz.Altitude)
		mark := ""
		if am <= cfg.Threshold {
			mark = " *"
			kept++
		}
		fmt.Printf("%-12s %9.3f %9.3f %9.3f %9.3f%s\n", t.Name, ha, hz.Altitude, hz.Azimuth, am, mark)
	}
	fmt.Printf("\n%d of %d targets at airmass <= %.2f (*)\n", kept, len(cat.Targets), cfg.Threshold)
}
