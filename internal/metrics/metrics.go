// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services and middleware
type Recorder interface {
	RecordAuth(op, result string)
	RecordPostOp(op, result string)
	RecordSessionEvent(eventType string)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Collector records metrics into a Prometheus registry
type Collector struct {
	authAttempts  *prometheus.CounterVec
	postOps       *prometheus.CounterVec
	sessionEvents *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// Ensure Collector implements Recorder
var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_auth_attempts_total",
			Help: "Sign-up, sign-in and sign-out attempts by result",
		}, []string{"op", "result"}),
		postOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_post_operations_total",
			Help: "Post operations by result",
		}, []string{"op", "result"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_session_events_total",
			Help: "Session events pushed to clients",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quill_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.postOps,
		c.sessionEvents,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordAuth(op, result string) {
	c.authAttempts.WithLabelValues(op, result).Inc()
}

func (c *Collector) RecordPostOp(op, result string) {
	c.postOps.WithLabelValues(op, result).Inc()
}

func (c *Collector) RecordSessionEvent(eventType string) {
	c.sessionEvents.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Nop discards all metrics
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordAuth(op, result string)                                              {}
func (Nop) RecordPostOp(op, result string)                                            {}
func (Nop) RecordSessionEvent(eventType string)                                       {}
func (Nop) RecordHTTPRequest(method, route string, status int, duration time.Duration) {}

// Result maps an error to a metric result label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler returns the HTTP handler for Prometheus scrapes
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
