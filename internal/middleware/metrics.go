package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records request counts and latencies on its own registry.
type Metrics struct {
	registry *prometheus.Registry
	known    map[string]bool
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics labels requests under /api/<resource> for the given resources;
// anything else under /api is labelled "other".
func NewMetrics(resources ...string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		known:    map[string]bool{},
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sos",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sos",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, r := range resources {
		m.known[r] = true
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := record(w)
		next.ServeHTTP(rec, r)
		route, method := m.Route(r.URL.Path), Method(r.Method)
		m.requests.WithLabelValues(method, route, strconv.Itoa(rec.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// Method maps request methods outside the standard set to "other".
func Method(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodOptions, http.MethodConnect, http.MethodTrace:
		return method
	}
	return "other"
}

// Route reduces a path to a bounded label: /api/<resource> for known
// resources, the path itself for the operational endpoints, "other" otherwise.
func (m *Metrics) Route(path string) string {
	if rest, ok := strings.CutPrefix(path, "/api/"); ok {
		resource, _, _ := strings.Cut(rest, "/")
		if m.known[resource] {
			return "/api/" + resource
		}
		return "other"
	}
	switch path {
	case "/health", "/healthz", "/metrics":
		return path
	}
	return "other"
}
