// Package api exposes the airmass filter over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/airmass/internal/auth"
	"github.com/star/airmass/internal/catalog"
	"github.com/star/airmass/internal/filter"
	"github.com/star/airmass/internal/health"
	"github.com/star/airmass/internal/metrics"
	"github.com/star/airmass/internal/observatory"
	"github.com/star/airmass/internal/timezone"
)

// Deps are the long-lived components the handlers read from.
type Deps struct {
	Pipeline      *filter.Pipeline
	Observatories *observatory.Registry
	Catalog       *catalog.Store
	Zones         timezone.Service // optional; enables site_time requests
}

// Options configures the HTTP layer.
type Options struct {
	Addr         string
	Auth         auth.Config
	MaxPerClient int  // concurrent filter passes per client IP (default 4)
	TrustProxy   bool // take the client IP from X-Forwarded-For / X-Real-IP
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options, deps Deps, logger *slog.Logger) *Server {
	if opts.MaxPerClient <= 0 {
		opts.MaxPerClient = 4
	}

	prober := health.NewProber(map[string]health.Check{
		"catalog":       catalogLoaded(deps.Catalog),
		"observatories": observatoriesLoaded(deps.Observatories),
	})
	limit := limitMiddleware(newPassLimiter(opts.MaxPerClient), opts.TrustProxy, logger)
	h := &handlers{deps: deps, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", prober.Healthz)
	mux.HandleFunc("GET /readyz", prober.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/observatories", h.observatories)
	mux.HandleFunc("GET /api/v1/catalog/status", h.catalogStatus)
	mux.HandleFunc("GET /api/v1/catalog", h.catalog)
	mux.Handle("POST /api/v1/filter", limit(http.HandlerFunc(h.filter)))
	mux.Handle("POST /api/v1/evaluate", limit(http.HandlerFunc(h.evaluate)))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(logger, opts.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", clientIP(r, trustProxy),
			)
		})
	}
}
