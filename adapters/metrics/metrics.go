// Package metrics provides Prometheus metrics for shapewire invocations.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/shapewire/ports"
)

// DefaultNamespace prefixes every metric name unless overridden.
const DefaultNamespace = "shapewire"

// Collector holds the invocation metrics. It implements
// ports.InvocationRecorder.
type Collector struct {
	// Invocation metrics
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	InvocationsFlight  prometheus.Gauge

	// Wire metrics
	PayloadBytes  *prometheus.CounterVec
	ServiceErrors *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector registered with the default registry.
func New(namespace string) *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer, namespace)
}

// NewWithRegistry creates a collector registered with reg.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer, namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Collector{
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of operation invocations",
			},
			[]string{"operation", "status"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Invocation duration in seconds, serialization included",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation", "status"},
		),
		InvocationsFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "invocations_in_flight",
				Help:      "Number of invocations currently waiting on the transport",
			},
		),
		PayloadBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payload_bytes_total",
				Help:      "Total body bytes by operation and direction",
			},
			[]string{"operation", "direction"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_errors_total",
				Help:      "Total number of service error responses by error code",
			},
			[]string{"operation", "code"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
	}
}

// StatusClass reduces a status code to its class ("2xx", "4xx", ...).
// Zero means no response was received.
func StatusClass(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}

// RecordInvocation implements ports.InvocationRecorder.
func (c *Collector) RecordInvocation(operation string, status int, d time.Duration) {
	class := StatusClass(status)
	c.InvocationsTotal.WithLabelValues(operation, class).Inc()
	c.InvocationDuration.WithLabelValues(operation, class).Observe(d.Seconds())
}

// RecordPayload implements ports.InvocationRecorder.
func (c *Collector) RecordPayload(operation, direction string, bytes int) {
	if bytes <= 0 {
		return
	}
	c.PayloadBytes.WithLabelValues(operation, direction).Add(float64(bytes))
}

// RecordServiceError implements ports.InvocationRecorder.
func (c *Collector) RecordServiceError(operation, code string) {
	c.ServiceErrors.WithLabelValues(operation, code).Inc()
}

// RecordReload counts a config reload attempt.
func (c *Collector) RecordReload(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
}

var _ ports.InvocationRecorder = (*Collector)(nil)
