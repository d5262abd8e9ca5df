package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/star/airmass/internal/airmass"
	"github.com/star/airmass/internal/catalog"
	"github.com/star/airmass/internal/metrics"
	"github.com/star/airmass/internal/observatory"
	"github.com/star/airmass/internal/sky"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var ctmo = sky.Observatory{
	Name:     "CTMO",
	Location: sky.GeodeticLocation{Longitude: -97.568956, Latitude: 25.995789, Height: 12},
}

// 2019-04-10 15:14:59 at UTC-5.
var ctmoEvening = time.Date(2019, 4, 10, 20, 14, 59, 0, time.UTC)

func sampleCatalog(t testing.TB) []sky.Target {
	t.Helper()
	targets, err := catalog.Sample(testLogger())
	if err != nil {
		t.Fatalf("catalog.Sample: %v", err)
	}
	return targets
}

func names(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Target.Name
	}
	return out
}

func TestFilterSampleCatalog(t *testing.T) {
	p := NewPipeline(Config{Workers: 4}, testLogger())

	tests := []struct {
		name    string
		instant time.Time
		want    []string
	}{
		{
			name:    "CTMO afternoon",
			instant: ctmoEvening,
			want: []string{
				"PGC003183", "UGC03858", "UGC03859", "UGC03889", "PGC021381", "PGC021386",
				"UGC03929", "UGC02860", "PGC069732", "PGC2211350", "NGC7379",
			},
		},
		{
			name:    "CTMO night",
			instant: time.Date(2019, 4, 11, 3, 0, 0, 0, time.UTC),
			want: []string{
				"UGC03858", "UGC03859", "UGC03889", "PGC021381", "PGC021386", "UGC03929", "UGC02860",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := p.Filter(context.Background(), NewRequest(ctmo, sampleCatalog(t), tt.instant))
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			if got := names(results); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("retained = %v\nwant       %v", got, tt.want)
			}
			for _, r := range results {
				if r.Airmass < 1 || r.Airmass > airmass.DefaultThreshold {
					t.Errorf("%s: airmass %.4f outside [1, %.1f]", r.Target.Name, r.Airmass, airmass.DefaultThreshold)
				}
				if r.Horizontal.Altitude <= 0 {
					t.Errorf("%s: retained with altitude %.4f", r.Target.Name, r.Horizontal.Altitude)
				}
			}
		})
	}
}

func TestEvaluateCircumpolarAndBelowHorizon(t *testing.T) {
	p := NewPipeline(Config{Workers: 2}, testLogger())
	cat := []sky.Target{
		{Name: "PGC003183", Coordinate: sky.EquatorialCoordinate{RightAscension: 0.90109, Declination: 73.08478}},
		{Name: "ESO274-008", Coordinate: sky.EquatorialCoordinate{RightAscension: 15.29708, Declination: -43.50163}},
	}

	results, err := p.Evaluate(context.Background(), ctmo, cat, ctmoEvening)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	north := results[0]
	if north.Horizontal.Altitude <= 0 {
		t.Errorf("PGC003183 altitude = %.4f, want > 0", north.Horizontal.Altitude)
	}
	if math.Abs(north.Airmass-1.55645) > 1e-4 {
		t.Errorf("PGC003183 airmass = %.5f, want 1.55645", north.Airmass)
	}

	south := results[1]
	if south.Horizontal.Altitude >= 0 {
		t.Errorf("ESO274-008 altitude = %.4f, want < 0", south.Horizontal.Altitude)
	}
	if south.Airmass != airmass.Unobservable || south.Observable() {
		t.Errorf("ESO274-008 airmass = %v, want sentinel %v", south.Airmass, airmass.Unobservable)
	}

	kept := Retain(results, airmass.DefaultThreshold)
	if got := names(kept); !reflect.DeepEqual(got, []string{"PGC003183"}) {
		t.Errorf("retained = %v, want [PGC003183]", got)
	}
}

func TestEvaluateCountsBelowHorizon(t *testing.T) {
	p := NewPipeline(Config{Workers: 3}, testLogger())
	cat := sampleCatalog(t)
	results, err := p.Evaluate(context.Background(), ctmo, cat, ctmoEvening)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(results) != 20 {
		t.Fatalf("got %d results, want 20", len(results))
	}

	below := 0
	for i, r := range results {
		if r.Target != cat[i] {
			t.Errorf("result %d is %s, want catalog order", i, r.Target.Name)
		}
		if !r.Observable() {
			below++
		}
	}
	if below != 7 {
		t.Errorf("below horizon = %d, want 7", below)
	}
}

func TestFilterIdempotent(t *testing.T) {
	p := NewPipeline(Config{Workers: 4}, testLogger())
	ctx := context.Background()

	first, err := p.Filter(ctx, NewRequest(ctmo, sampleCatalog(t), ctmoEvening))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	second, err := p.Filter(ctx, NewRequest(ctmo, Targets(first), ctmoEvening))
	if err != nil {
		t.Fatalf("re-Filter: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-filtering changed the result:\nfirst  %v\nsecond %v", names(first), names(second))
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	p := NewPipeline(Config{Workers: 8}, testLogger())
	cat := sampleCatalog(t)

	results, err := p.Filter(context.Background(), Request{
		Observatory: ctmo, Catalog: cat, Instant: ctmoEvening, Threshold: 50,
	})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}

	// Retained names must be a subsequence of the catalog.
	j := 0
	for _, r := range results {
		for j < len(cat) && cat[j].Name != r.Target.Name {
			j++
		}
		if j == len(cat) {
			t.Fatalf("%s out of catalog order", r.Target.Name)
		}
		j++
	}
}

func TestFilterThresholdMonotonic(t *testing.T) {
	p := NewPipeline(Config{Workers: 4}, testLogger())
	cat := sampleCatalog(t)

	thresholds := []float64{1.0, 1.6, 2.0, 2.5, 2.8, 3.5, 98.9, 99}
	var prev map[string]bool
	prevK := 0.0
	for _, k := range thresholds {
		results, err := p.Filter(context.Background(), Request{Observatory: ctmo, Catalog: cat, Instant: ctmoEvening, Threshold: k})
		if err != nil {
			t.Fatalf("Filter(k=%v): %v", k, err)
		}
		cur := make(map[string]bool, len(results))
		for _, r := range results {
			cur[r.Target.Name] = true
		}
		for name := range prev {
			if !cur[name] {
				t.Errorf("%s retained at k=%v but dropped at k=%v", name, prevK, k)
			}
		}
		prev, prevK = cur, k
	}

	// 2.8 picks up UGC11902 (2.70); 3.5 picks up UGC11848 (3.42).
	results, _ := p.Filter(context.Background(), Request{Observatory: ctmo, Catalog: cat, Instant: ctmoEvening, Threshold: 2.8})
	if len(results) != 12 {
		t.Errorf("k=2.8 retained %d, want 12", len(results))
	}
	// Only a threshold at the sentinel lets below-horizon targets through.
	results, _ = p.Filter(context.Background(), Request{Observatory: ctmo, Catalog: cat, Instant: ctmoEvening, Threshold: airmass.Unobservable})
	if len(results) != 20 {
		t.Errorf("k=99 retained %d, want 20", len(results))
	}
}

func TestFilterInvalidThreshold(t *testing.T) {
	p := NewPipeline(Config{Workers: 2}, testLogger())
	before := testutil.ToFloat64(metrics.TargetsEvaluatedTotal)

	for _, k := range []float64{0, -1, math.NaN()} {
		results, err := p.Filter(context.Background(), Request{Observatory: ctmo, Catalog: sampleCatalog(t), Instant: ctmoEvening, Threshold: k})
		if !errors.Is(err, sky.ErrInvalidArgument) {
			t.Errorf("threshold %v: error = %v, want ErrInvalidArgument", k, err)
		}
		if results != nil {
			t.Errorf("threshold %v: got results %v", k, names(results))
		}
	}

	if got := testutil.ToFloat64(metrics.TargetsEvaluatedTotal) - before; got != 0 {
		t.Errorf("%v targets evaluated despite invalid threshold", got)
	}
}

func TestFilterInvalidTargetAbortsPass(t *testing.T) {
	p := NewPipeline(Config{Workers: 2}, testLogger())

	tests := []struct {
		name    string
		bad     sky.Target
		wantKey string
	}{
		{"dec out of range", sky.Target{Name: "BAD-DEC", Coordinate: sky.EquatorialCoordinate{RightAscension: 1, Declination: 95}}, "BAD-DEC"},
		{"ra out of range", sky.Target{Name: "BAD-RA", Coordinate: sky.EquatorialCoordinate{RightAscension: 24.5, Declination: 0}}, "BAD-RA"},
		{"duplicate name", sky.Target{Name: "PGC003183", Coordinate: sky.EquatorialCoordinate{RightAscension: 1, Declination: 0}}, "PGC003183"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := append(sampleCatalog(t), tt.bad)
			results, err := p.Filter(context.Background(), NewRequest(ctmo, cat, ctmoEvening))
			var iae *sky.InvalidArgumentError
			if !errors.As(err, &iae) {
				t.Fatalf("error = %v, want *InvalidArgumentError", err)
			}
			if iae.Key != tt.wantKey {
				t.Errorf("error key = %q, want %q", iae.Key, tt.wantKey)
			}
			if results != nil {
				t.Errorf("partial results returned: %v", names(results))
			}
		})
	}
}

func TestFilterInvalidObservatory(t *testing.T) {
	p := NewPipeline(Config{Workers: 2}, testLogger())
	bad := sky.Observatory{Name: "Tilted", Location: sky.GeodeticLocation{Latitude: -100}}

	_, err := p.Filter(context.Background(), NewRequest(bad, sampleCatalog(t), ctmoEvening))
	var iae *sky.InvalidArgumentError
	if !errors.As(err, &iae) || iae.Key != "Tilted" {
		t.Fatalf("error = %v, want InvalidArgumentError for Tilted", err)
	}
}

// countingResolver records lookups and delegates to a registry.
type countingResolver struct {
	reg   *observatory.Registry
	calls int
}

func (c *countingResolver) Resolve(name string) (sky.Observatory, error) {
	c.calls++
	return c.reg.Resolve(name)
}

func TestFilterByName(t *testing.T) {
	reg, err := observatory.NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("NewBuiltinRegistry: %v", err)
	}
	p := NewPipeline(Config{Workers: 4}, testLogger())
	resolver := &countingResolver{reg: reg}

	results, err := p.FilterByName(context.Background(), resolver, "CTMO", sampleCatalog(t), ctmoEvening, airmass.DefaultThreshold)
	if err != nil {
		t.Fatalf("FilterByName: %v", err)
	}
	if len(results) != 11 {
		t.Errorf("retained %d, want 11", len(results))
	}
	if resolver.calls != 1 {
		t.Errorf("resolver called %d times, want 1", resolver.calls)
	}
}

func TestFilterByNameNotFound(t *testing.T) {
	reg, err := observatory.NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("NewBuiltinRegistry: %v", err)
	}
	p := NewPipeline(Config{Workers: 4}, testLogger())
	before := testutil.ToFloat64(metrics.TargetsEvaluatedTotal)
	notFoundBefore := testutil.ToFloat64(metrics.FilterRunsTotal.WithLabelValues(metrics.OutcomeNotFound))

	// Even a catalog with a bad row must not be looked at.
	cat := append(sampleCatalog(t), sky.Target{Name: "BAD", Coordinate: sky.EquatorialCoordinate{RightAscension: 99}})
	results, err := p.FilterByName(context.Background(), reg, "Arecibo", cat, ctmoEvening, airmass.DefaultThreshold)

	var nf *sky.NotFoundError
	if !errors.As(err, &nf) || nf.Name != "Arecibo" {
		t.Fatalf("error = %v, want NotFoundError for Arecibo", err)
	}
	if results != nil {
		t.Errorf("partial results returned: %v", names(results))
	}
	if got := testutil.ToFloat64(metrics.TargetsEvaluatedTotal) - before; got != 0 {
		t.Errorf("%v targets evaluated against an unresolved observatory", got)
	}
	if got := testutil.ToFloat64(metrics.FilterRunsTotal.WithLabelValues(metrics.OutcomeNotFound)) - notFoundBefore; got != 1 {
		t.Errorf("not_found runs delta = %v, want 1", got)
	}
}

func TestFilterDeterministicAcrossWorkerCounts(t *testing.T) {
	var cat []sky.Target
	for i := 0; i < 2000; i++ {
		cat = append(cat, sky.Target{
			Name: fmt.Sprintf("T%04d", i),
			Coordinate: sky.EquatorialCoordinate{
				RightAscension: math.Mod(float64(i)*0.0137, 24),
				Declination:    -90 + math.Mod(float64(i)*0.091, 180),
			},
		})
	}

	serial, err := NewPipeline(Config{Workers: 1}, testLogger()).Evaluate(context.Background(), ctmo, cat, ctmoEvening)
	if err != nil {
		t.Fatalf("serial Evaluate: %v", err)
	}
	for _, workers := range []int{2, 7, 32} {
		parallel, err := NewPipeline(Config{Workers: workers}, testLogger()).Evaluate(context.Background(), ctmo, cat, ctmoEvening)
		if err != nil {
			t.Fatalf("Evaluate(workers=%d): %v", workers, err)
		}
		if !reflect.DeepEqual(serial, parallel) {
			t.Errorf("workers=%d result differs from serial evaluation", workers)
		}
	}
}

func TestFilterEmptyCatalog(t *testing.T) {
	p := NewPipeline(Config{Workers: 4}, testLogger())
	results, err := p.Filter(context.Background(), NewRequest(ctmo, nil, ctmoEvening))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Filter(empty) = %v, want empty non-nil slice", results)
	}
}

func TestFilterCancelled(t *testing.T) {
	p := NewPipeline(Config{Workers: 2}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := p.Filter(ctx, NewRequest(ctmo, sampleCatalog(t), ctmoEvening))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if results != nil {
		t.Errorf("partial results returned: %v", names(results))
	}
}

func TestFilterLocalInstantIsConverted(t *testing.T) {
	p := NewPipeline(Config{Workers: 2}, testLogger())
	cdt := time.FixedZone("CDT", -5*3600)
	local := time.Date(2019, 4, 10, 15, 14, 59, 0, cdt)

	a, err := p.Filter(context.Background(), NewRequest(ctmo, sampleCatalog(t), local))
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Filter(context.Background(), NewRequest(ctmo, sampleCatalog(t), ctmoEvening))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same instant in different zones gave different results")
	}
}

func BenchmarkFilter1000(b *testing.B) {
	cat := make([]sky.Target, 1000)
	for i := range cat {
		cat[i] = sky.Target{
			Name:       fmt.Sprintf("T%04d", i),
			Coordinate: sky.EquatorialCoordinate{RightAscension: float64(i%240) / 10, Declination: float64(i%180) - 89.5},
		}
	}
	p := NewPipeline(Config{Workers: 4}, testLogger())
	req := NewRequest(ctmo, cat, ctmoEvening)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Filter(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}
