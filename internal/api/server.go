// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"loyalty-agent/internal/agent"
	"loyalty-agent/internal/common/config"
	"loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/common/logger"
	"loyalty-agent/internal/common/metrics"
	"loyalty-agent/internal/memory"
	"loyalty-agent/internal/models"
	"loyalty-agent/internal/registry"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Catalog is the reference data the API reports on.
type Catalog interface {
	AllCustomers() []models.Customer
	CustomerCount() int
	TransactionCount() int
}

// Dependencies are the collaborators of a Server. Agent and Catalog are nil
// when reference data failed to load; the server then runs degraded and
// answers analysis requests with 503.
type Dependencies struct {
	Agent    *agent.Agent
	Catalog  Catalog
	Memory   *memory.Manager
	Registry *registry.Client
	App      config.AppConfig
	Logger   logger.Logger

	// HeartbeatInterval applies to registrations made through POST /register.
	HeartbeatInterval time.Duration
	// Lifetime bounds background work started by requests. Defaults to
	// context.Background.
	Lifetime context.Context
}

type Server struct {
	deps     Dependencies
	logger   logger.Logger
	errors   *errors.ErrorHandler
	started  time.Time
	now      func() time.Time
	requests atomic.Int64
	failures atomic.Int64
}

func NewServer(deps Dependencies) *Server {
	if deps.Lifetime == nil {
		deps.Lifetime = context.Background()
	}
	log := deps.Logger.WithFields(map[string]interface{}{"component": "api"})
	return &Server{
		deps:    deps,
		logger:  log,
		errors:  errors.NewErrorHandler(log),
		started: time.Now(),
		now:     time.Now,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.instrument)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/metrics", s.handleMetrics)
	r.Handle("/prometheus", promhttp.Handler())

	r.Post("/analyze", s.handleAnalyze)
	r.Post("/analyze/batch", s.handleBatch)
	r.Post("/register", s.handleRegister)

	r.Get("/customers/at-risk", s.handleAtRisk)
	r.Get("/customers/{id}/history", s.handleHistory)
	r.Delete("/customers/{id}/history", s.handleClearHistory)
	r.Get("/memory/stats", s.handleMemoryStats)
	r.Delete("/memory/short-term", s.handleClearShortTerm)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Endpoint not found"})
	})
	return r
}

// probes are not counted toward the request and error totals of /health.
var probes = map[string]bool{"/health": true, "/ready": true, "/prometheus": true}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		if !probes[route] {
			s.requests.Add(1)
			if status >= http.StatusBadRequest {
				s.failures.Add(1)
			}
		}

		s.logger.Debug("request served", map[string]interface{}{
			"method":     r.Method,
			"route":      route,
			"status":     status,
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  chimw.GetReqID(r.Context()),
		})
	})
}
