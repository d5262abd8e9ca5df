// Package health serves liveness and readiness probes.
package health

import (
	"net/http"
	"strings"
)

// Check reports whether one dependency is ready. A non-nil error names
// what is missing.
type Check func() error

// Prober answers /healthz and /readyz.
type Prober struct {
	checks map[string]Check
}

// NewProber creates a Prober running the named readiness checks.
func NewProber(checks map[string]Check) *Prober {
	return &Prober{checks: checks}
}

// Healthz returns 200 "ok\n" unconditionally.
func (p *Prober) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" once every check passes, else 503 listing
// the failures.
func (p *Prober) Readyz(w http.ResponseWriter, r *http.Request) {
	var failed []string
	for name, check := range p.checks {
		if err := check(); err != nil {
			failed = append(failed, name+": "+err.Error())
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	if len(failed) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n" + strings.Join(failed, "\n") + "\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
