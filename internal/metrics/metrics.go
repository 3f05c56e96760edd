// Package metrics exposes the Prometheus metrics of the API service.
package metrics

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobly/api-service/internal/catalog"
	"jobly/api-service/internal/logging"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	catalogRows *prometheus.GaugeVec
	buildInfo   *prometheus.GaugeVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests served, by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency, by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		catalogRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_rows",
				Help: "Number of rows per catalog table, refreshed periodically.",
			},
			[]string{"table"},
		),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_build_info",
				Help: "Build information of the service",
			},
			[]string{"revision", "goversion"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.catalogRows,
		m.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SampleBuildInfo sets service_build_info. It is a gauge, so it needs to be
// set only once on startup.
func (m *Metrics) SampleBuildInfo() {
	goVersion := "undefined"
	revision := "undefined"

	if info, ok := debug.ReadBuildInfo(); ok {
		goVersion = info.GoVersion
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				revision = s.Value
			}
		}
	}
	m.buildInfo.With(prometheus.Labels{"goversion": goVersion, "revision": revision}).Set(1)
}

// SetCatalogStats publishes the row counts returned by catalog.Service.Stats.
func (m *Metrics) SetCatalogStats(st catalog.Stats) {
	m.catalogRows.WithLabelValues("companies").Set(float64(st.Companies))
	m.catalogRows.WithLabelValues("jobs").Set(float64(st.Jobs))
	m.catalogRows.WithLabelValues("users").Set(float64(st.Users))
	m.catalogRows.WithLabelValues("applications").Set(float64(st.Applications))
}

// Middleware counts and times every request. Requests are labelled with the
// ServeMux pattern that matched them so path parameters do not explode the
// label cardinality; unmatched requests get the route "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := logging.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
