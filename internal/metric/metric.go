// Package metric exposes service and HTTP metrics in Prometheus format.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maintrack"

// Metrics holds every collector on a private registry.
// It satisfies core.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	importsTotal         *prometheus.CounterVec
	importRows           *prometheus.CounterVec
	importDuration       *prometheus.HistogramVec
	identifiersAllocated *prometheus.CounterVec
	identifierCollisions *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		importsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "batches_total",
				Help:      "Import batches run, by entity kind and whether any row failed",
			},
			[]string{"kind", "status"},
		),

		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "rows_total",
				Help:      "Imported rows by entity kind and result",
			},
			[]string{"kind", "result"},
		),

		importDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "duration_seconds",
				Help:      "Time spent processing one import batch",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"kind"},
		),

		identifiersAllocated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ids",
				Name:      "allocated_total",
				Help:      "Identifiers allocated for created entities",
			},
			[]string{"kind"},
		),

		identifierCollisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ids",
				Name:      "collisions_total",
				Help:      "Creates rejected because the allocated identifier was already taken",
			},
			[]string{"kind"},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.importsTotal,
		m.importRows,
		m.importDuration,
		m.identifiersAllocated,
		m.identifierCollisions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveImport records one finished import batch.
func (m *Metrics) ObserveImport(kind string, processed, failed int, d time.Duration) {
	status := "ok"
	if failed > 0 {
		status = "partial"
	}
	m.importsTotal.WithLabelValues(kind, status).Inc()
	m.importRows.WithLabelValues(kind, "processed").Add(float64(processed))
	m.importRows.WithLabelValues(kind, "failed").Add(float64(failed))
	m.importDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IdentifierAllocated counts a successful create.
func (m *Metrics) IdentifierAllocated(kind string) {
	m.identifiersAllocated.WithLabelValues(kind).Inc()
}

// IdentifierCollision counts a create that lost an identifier race.
func (m *Metrics) IdentifierCollision(kind string) {
	m.identifierCollisions.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:          m.registry,
		EnableOpenMetrics: true,
	})
}

// Middleware records request counts and latency. Routes are labelled with
// the chi route pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
