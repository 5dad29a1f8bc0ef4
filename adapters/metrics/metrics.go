// Package metrics provides Prometheus metrics collection for hsdsgate.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hsdsgate"

// Collector holds all Prometheus metrics for hsdsgate.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	AuthFailures     *prometheus.CounterVec

	// Record metrics
	RecordsPublished *prometheus.CounterVec
	RecordsRejected  *prometheus.CounterVec
	PublishDuration  *prometheus.HistogramVec
	PublishErrors    *prometheus.CounterVec
	Heartbeats       *prometheus.CounterVec

	// Config metrics
	ConfigReloads    *prometheus.CounterVec
	ConfigLastReload prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of rejected bearer tokens",
			},
			[]string{"reason"},
		),
		RecordsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_published_total",
				Help:      "Records sent to the distribution layer",
			},
			[]string{"topic"},
		),
		RecordsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_rejected_total",
				Help:      "Submissions refused before or during publishing",
			},
			[]string{"type", "reason"},
		),
		PublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_duration_seconds",
				Help:      "Channel send duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 5},
			},
			[]string{"topic"},
		),
		PublishErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_errors_total",
				Help:      "Channel sends that failed",
			},
			[]string{"topic"},
		),
		Heartbeats: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "heartbeats_total",
				Help:      "Heartbeats sent, by result",
			},
			[]string{"status"},
		),
		ConfigReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Config reload attempts, by result",
			},
			[]string{"status"},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// ObservePublish records one channel send.
func (c *Collector) ObservePublish(topic string, d time.Duration, err error) {
	c.PublishDuration.WithLabelValues(topic).Observe(d.Seconds())
	if err != nil {
		c.PublishErrors.WithLabelValues(topic).Inc()
		return
	}
	c.RecordsPublished.WithLabelValues(topic).Inc()
}

// ObserveRejected records a refused submission.
func (c *Collector) ObserveRejected(typeName, reason string) {
	c.RecordsRejected.WithLabelValues(typeName, reason).Inc()
}

// ObserveHeartbeat records a heartbeat attempt.
func (c *Collector) ObserveHeartbeat(err error) {
	c.Heartbeats.WithLabelValues(status(err)).Inc()
}

// ObserveReload records a config reload attempt.
func (c *Collector) ObserveReload(at time.Time, err error) {
	c.ConfigReloads.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.ConfigLastReload.Set(float64(at.Unix()))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// StatusClass buckets an HTTP status code as 2xx, 4xx and so on.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "1xx"
}
