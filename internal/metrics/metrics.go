// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the metrics interface consumed by the application services.
type Collector interface {
	RecordRegistration(outcome string)
	RecordCompensatedArtifacts(count int)
	RecordLogin(success bool)
	RecordRotation(success bool)
}

// PromCollector is the Prometheus-backed Collector implementation.
type PromCollector struct {
	registrations *prometheus.CounterVec
	compensated   prometheus.Counter
	logins        *prometheus.CounterVec
	rotations     *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	httpDuration  prometheus.Histogram
}

// NewCollector creates a PromCollector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *PromCollector {
	c := &PromCollector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_registrations_total",
			Help: "Registration attempts by outcome (success, conflict, upload_failed, persist_failed, bad_request).",
		}, []string{"outcome"}),
		compensated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_compensated_artifacts_total",
			Help: "Uploaded artifacts deleted by registration compensation.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_token_rotations_total",
			Help: "Refresh token rotations by result.",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "identity_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.compensated,
		c.logins,
		c.rotations,
		c.httpStatus,
		c.httpDuration,
	)

	return c
}

func (c *PromCollector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

func (c *PromCollector) RecordCompensatedArtifacts(count int) {
	c.compensated.Add(float64(count))
}

func (c *PromCollector) RecordLogin(success bool) {
	c.logins.WithLabelValues(result(success)).Inc()
}

func (c *PromCollector) RecordRotation(success bool) {
	c.rotations.WithLabelValues(result(success)).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler returns the /metrics endpoint handler for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Middleware records status code and latency for every request.
func (c *PromCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.httpStatus.WithLabelValues(strconv.Itoa(sw.status)).Inc()
		c.httpDuration.Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Nop is a Collector that discards everything. Used in tests and as the
// default when no registry is wired.
type Nop struct{}

func (Nop) RecordRegistration(string)      {}
func (Nop) RecordCompensatedArtifacts(int) {}
func (Nop) RecordLogin(bool)               {}
func (Nop) RecordRotation(bool)            {}
