package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/crime-watch/internal/dashboard"
	"github.com/couchcryptid/crime-watch/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dash       *dashboard.Dashboard
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures NewServer.
type Options struct {
	Addr           string
	AllowedOrigins []string
	Dashboard      *dashboard.Dashboard
	Ready          sharedobs.ReadinessChecker
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

// NewServer creates the HTTP server and mounts every route.
func NewServer(opts Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dash:    opts.Dashboard,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}

	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(s.instrument)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(opts.Ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/kpis", s.handleKPIs)
		r.Get("/status-breakdown", s.handleStatusBreakdown)
		r.Get("/charts/trend", s.handleTrend)
		r.Get("/charts/time-of-day", s.handleTimeOfDay)
		r.Get("/charts/incident-types", s.handleIncidentTypes)
		r.Get("/map", s.handleMap)
		r.Get("/vocabulary", s.handleVocabulary)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleReports)
			r.Post("/reload", s.handleReload)
			r.Get("/{id}", s.handleReport)
			r.Patch("/{id}/status", s.handleUpdateStatus)
		})

		r.Route("/filters", func(r chi.Router) {
			r.Get("/", s.handleGetFilters)
			r.Put("/", s.handlePutFilters)
			r.Post("/apply", s.handleApplyFilters)
			r.Post("/reset", s.handleResetFilters)
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// instrument records request counts and latency by chi route pattern, so
// /reports/{id} is one series regardless of id.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.logger.Debug("http request", "method", r.Method, "route", route, "status", status,
			"request_id", chimw.GetReqID(r.Context()), "duration", time.Since(start))
	})
}
