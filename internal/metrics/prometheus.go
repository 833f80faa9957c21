// Package metrics records coordinator and HTTP activity as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements fetch.Recorder and observes HTTP requests.
type PrometheusRecorder struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	httpTotal     *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewPrometheusRecorder registers its metrics with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_requests_total",
				Help: "Completed coordinator calls by coordinator and outcome",
			},
			[]string{"coordinator", "outcome"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_duration_seconds",
				Help:    "Duration of coordinator calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"coordinator"},
		),
		httpTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveFetch records one completed coordinator call.
func (p *PrometheusRecorder) ObserveFetch(coordinator, outcome string, elapsed time.Duration) {
	p.fetchTotal.WithLabelValues(coordinator, outcome).Inc()
	p.fetchDuration.WithLabelValues(coordinator).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request. route is the matched route
// pattern, not the raw path.
func (p *PrometheusRecorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	p.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
