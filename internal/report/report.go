// Package report renders filter results for people and for programs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/star/airmass/internal/filter"
)

// Row is the serialised form of a filter.Result.
type Row struct {
	Name           string  `json:"name"`
	RightAscension float64 `json:"ra_hours"`
	Declination    float64 `json:"dec_deg"`
	Altitude       float64 `json:"alt_deg"`
	Azimuth        float64 `json:"az_deg"`
	Airmass        float64 `json:"airmass"`
	Observable     bool    `json:"observable"`
}

// Rows converts results in order.
func Rows(results []filter.Result) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = Row{
			Name:           r.Target.Name,
			RightAscension: r.Target.Coordinate.RightAscension,
			Declination:    r.Target.Coordinate.Declination,
			Altitude:       r.Horizontal.Altitude,
			Azimuth:        r.Horizontal.Azimuth,
			Airmass:        r.Airmass,
			Observable:     r.Observable(),
		}
	}
	return rows
}

// WriteTable writes an aligned table with one line per result.
// Unobservable targets show "-" in the airmass column.
func WriteTable(w io.Writer, results []filter.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "name\tra_h\tdec_deg\talt_deg\taz_deg\tairmass\t")
	for _, r := range Rows(results) {
		am := "-"
		if r.Observable {
			am = fmt.Sprintf("%.3f", r.Airmass)
		}
		fmt.Fprintf(tw, "%s\t%.5f\t%.5f\t%.2f\t%.2f\t%s\t\n",
			r.Name, r.RightAscension, r.Declination, r.Altitude, r.Azimuth, am)
	}
	return tw.Flush()
}

// WriteJSON writes results as an indented JSON array. An empty result set
// is written as [] rather than null.
func WriteJSON(w io.Writer, results []filter.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Rows(results))
}
