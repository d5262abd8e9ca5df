package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/airmass/internal/airmass"
	"github.com/star/airmass/internal/catalog"
	"github.com/star/airmass/internal/filter"
	"github.com/star/airmass/internal/health"
	"github.com/star/airmass/internal/observatory"
	"github.com/star/airmass/internal/report"
	"github.com/star/airmass/internal/sky"
	"github.com/star/airmass/internal/timezone"
	"github.com/star/airmass/internal/transform"
)

const maxBodyBytes = 1 << 20

// inlineSite names an observatory given by coordinates in the request.
const inlineSite = "custom"

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

type locationJSON struct {
	Name      string  `json:"name,omitempty"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Height    float64 `json:"height"`
}

type targetJSON struct {
	Name           string  `json:"name"`
	RightAscension float64 `json:"ra"`
	Declination    float64 `json:"dec"`
}

// passRequest is the body of /api/v1/filter and /api/v1/evaluate.
type passRequest struct {
	Observatory string        `json:"observatory,omitempty"`
	Location    *locationJSON `json:"location,omitempty"`
	Time        string        `json:"time,omitempty"` // local wall clock; empty means now
	UTCOffset   float64       `json:"utc_offset"`
	SiteTime    bool          `json:"site_time,omitempty"` // time is in the site's own zone
	Threshold   *float64      `json:"threshold,omitempty"`
	Targets     []targetJSON  `json:"targets,omitempty"` // nil means the loaded catalog
}

type passResponse struct {
	Observatory string       `json:"observatory"`
	Instant     string       `json:"instant_utc"`
	UTCOffset   float64      `json:"utc_offset"`
	LSTHours    float64      `json:"lst_hours"`
	Threshold   float64      `json:"threshold,omitempty"`
	Catalog     string       `json:"catalog"`
	Count       int          `json:"count"`
	Results     []report.Row `json:"results"`
}

// pass is a decoded, resolved request.
type pass struct {
	site      string // registry name, empty for an inline location
	obs       sky.Observatory
	instant   time.Time
	utcOffset float64 // hours, as applied to the request time
	threshold float64
	targets   []sky.Target
	source    string
}

func (h *handlers) observatories(w http.ResponseWriter, r *http.Request) {
	all := h.deps.Observatories.All()
	out := make([]locationJSON, len(all))
	for i, o := range all {
		out[i] = locationJSON{
			Name:      o.Name,
			Longitude: o.Location.Longitude,
			Latitude:  o.Location.Latitude,
			Height:    o.Location.Height,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) catalogStatus(w http.ResponseWriter, r *http.Request) {
	c := h.deps.Catalog.Get()
	if c == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no catalog loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":    c.Source,
		"loaded_at": c.LoadedAt.UTC().Format(time.RFC3339),
		"targets":   len(c.Targets),
	})
}

func (h *handlers) catalog(w http.ResponseWriter, r *http.Request) {
	c := h.deps.Catalog.Get()
	if c == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no catalog loaded"})
		return
	}
	out := make([]targetJSON, len(c.Targets))
	for i, t := range c.Targets {
		out[i] = targetJSON{Name: t.Name, RightAscension: t.Coordinate.RightAscension, Declination: t.Coordinate.Declination}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) filter(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}

	var (
		results []filter.Result
		err     error
	)
	if p.site != "" {
		results, err = h.deps.Pipeline.FilterByName(r.Context(), h.deps.Observatories, p.site, p.targets, p.instant, p.threshold)
	} else {
		results, err = h.deps.Pipeline.Filter(r.Context(), filter.Request{
			Observatory: p.obs,
			Catalog:     p.targets,
			Instant:     p.instant,
			Threshold:   p.threshold,
		})
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, p, p.threshold, results)
}

func (h *handlers) evaluate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}
	if p.site != "" {
		obs, err := h.deps.Observatories.Resolve(p.site)
		if err != nil {
			h.writeError(w, err)
			return
		}
		p.obs = obs
	}

	results, err := h.deps.Pipeline.Evaluate(r.Context(), p.obs, p.targets, p.instant)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, p, 0, results)
}

// decode parses and resolves the request body, writing an error response
// and returning false on failure.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request) (pass, bool) {
	var req passRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: decoding request: %v", sky.ErrInvalidArgument, err))
		return pass{}, false
	}

	p, err := h.resolve(req)
	if err != nil {
		h.writeError(w, err)
		return pass{}, false
	}
	return p, true
}

func (h *handlers) resolve(req passRequest) (pass, error) {
	p := pass{threshold: airmass.DefaultThreshold}
	if req.Threshold != nil {
		p.threshold = *req.Threshold
	}

	switch {
	case req.Observatory != "" && req.Location != nil:
		return pass{}, fmt.Errorf("%w: give either observatory or location, not both", sky.ErrInvalidArgument)
	case req.Location != nil:
		loc, err := sky.NewGeodeticLocation(req.Location.Longitude, req.Location.Latitude, req.Location.Height)
		if err != nil {
			return pass{}, err
		}
		name := req.Location.Name
		if name == "" {
			name = inlineSite
		}
		p.obs = sky.Observatory{Name: name, Location: loc}
	case req.Observatory != "":
		p.site = req.Observatory
	default:
		return pass{}, fmt.Errorf("%w: observatory or location is required", sky.ErrInvalidArgument)
	}

	if req.UTCOffset < -14 || req.UTCOffset > 14 {
		return pass{}, sky.InvalidArgument("", "utc_offset", req.UTCOffset, "must be within [-14, 14] hours")
	}
	if req.SiteTime && req.UTCOffset != 0 {
		return pass{}, fmt.Errorf("%w: give either site_time or utc_offset, not both", sky.ErrInvalidArgument)
	}
	if err := h.resolveInstant(&p, req); err != nil {
		return pass{}, err
	}

	if req.Targets != nil {
		p.targets = make([]sky.Target, len(req.Targets))
		for i, t := range req.Targets {
			p.targets[i] = sky.Target{
				Name:       t.Name,
				Coordinate: sky.EquatorialCoordinate{RightAscension: t.RightAscension, Declination: t.Declination},
			}
		}
		p.source = "request"
		return p, nil
	}

	c := h.deps.Catalog.Get()
	if c == nil {
		return pass{}, errNoCatalog
	}
	p.targets, p.source = c.Targets, c.Source
	return p, nil
}

// resolveInstant converts the request's local time to UTC. Empty time
// means now.
func (h *handlers) resolveInstant(p *pass, req passRequest) error {
	if req.Time == "" {
		p.instant = time.Now().UTC()
		return nil
	}
	local, err := transform.ParseLocal(req.Time)
	if err != nil {
		return err
	}
	if !req.SiteTime {
		p.instant, p.utcOffset = transform.ToUTC(local, req.UTCOffset), req.UTCOffset
		return nil
	}

	if h.deps.Zones == nil {
		return errNoZones
	}
	loc := p.obs.Location
	if p.site != "" {
		obs, err := h.deps.Observatories.Resolve(p.site)
		if err != nil {
			return err
		}
		loc = obs.Location
	}
	p.instant, p.utcOffset, err = timezone.SiteToUTC(h.deps.Zones, local, loc)
	return err
}

func (h *handlers) respond(w http.ResponseWriter, p pass, threshold float64, results []filter.Result) {
	if p.site != "" {
		// The pass already resolved the name, so this cannot miss.
		p.obs, _ = h.deps.Observatories.Resolve(p.site)
	}
	writeJSON(w, http.StatusOK, passResponse{
		Observatory: p.obs.Name,
		Instant:     p.instant.Format(time.RFC3339),
		UTCOffset:   p.utcOffset,
		LSTHours:    transform.LocalSiderealTime(p.instant, p.obs.Location.Longitude),
		Threshold:   threshold,
		Catalog:     p.source,
		Count:       len(results),
		Results:     report.Rows(results),
	})
}

var (
	errNoCatalog = errors.New("no catalog loaded")
	errNoZones   = errors.New("site time zones unavailable")
)

// writeError maps error kinds onto status codes.
func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sky.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, sky.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errNoCatalog),
		errors.Is(err, errNoZones),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "component", "api", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func catalogLoaded(s *catalog.Store) health.Check {
	return func() error {
		if s.Get() == nil {
			return errNoCatalog
		}
		return nil
	}
}

func observatoriesLoaded(r *observatory.Registry) health.Check {
	return func() error {
		if r == nil || r.Len() == 0 {
			return errors.New("no observatories registered")
		}
		return nil
	}
}
