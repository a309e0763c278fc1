// Package web provides the HTTP API of maintrack: entity CRUD, identifier
// previews, CSV import/export and the activity log.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/maintrack/internal/config"
	"github.com/JonMunkholm/maintrack/internal/core"
	"github.com/JonMunkholm/maintrack/internal/metric"
	"github.com/JonMunkholm/maintrack/internal/web/middleware"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the maintrack API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	metrics *metric.Metrics
	pinger  Pinger
	router  *chi.Mux
	server  *http.Server

	limiters []*middleware.RateLimiter
}

// NewServer wires routes and middleware. metrics may be nil, in which case
// /metrics is not served.
func NewServer(service *core.Service, cfg *config.Config, metrics *metric.Metrics) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		metrics: metrics,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// WithPinger makes /healthz check the store.
func (s *Server) WithPinger(p Pinger) *Server {
	s.pinger = p
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(middleware.SecurityHeaders)
	s.router.Use(middleware.RequestMetadata)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
			r.Get("/entities", s.handleListEntities)
			r.Get("/activity-logs", s.handleListActivity)
			r.Get("/activity-logs/{id}", s.handleGetActivity)
		})

		r.Route("/{kind}", func(r chi.Router) {
			// Imports carry their own deadline (UPLOAD_TIMEOUT).
			r.With(s.uploadMiddleware()...).Post("/import", s.handleImport)
			r.With(s.uploadMiddleware()...).Post("/import/preview", s.handleImportPreview)

			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
				r.Use(chimw.Compress(5))

				r.Get("/", s.handleList)
				r.Post("/", s.handleCreate)
				r.Get("/next-id", s.handleNextID)
				r.Get("/template", s.handleTemplate)
				r.Get("/export", s.handleExport)
				r.Get("/{id}", s.handleGet)
				r.Put("/{id}", s.handleUpdate)
				r.Delete("/{id}", s.handleDelete)
			})
		})
	})
}

func (s *Server) uploadMiddleware() []func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return nil
	}
	return []func(http.Handler) http.Handler{s.newLimiter(s.cfg.Rate.UploadLimit).Handler}
}

func (s *Server) newLimiter(perMinute int) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// ServeHTTP lets the server be used directly as a handler, as in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Store   string                   `json:"store"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Store:   "ok",
		Imports: s.service.ImportLimiterStatus(),
	}
	status := http.StatusOK
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Store = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
