// Package metrics exposes Prometheus collectors for configuration sessions.
//
// A nil *Collector is valid and records nothing, so components can take
// an optional collector without guarding every call.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for ValueIngested.
const (
	ResultStored  = "stored"
	ResultUnknown = "unknown"
	ResultCorrupt = "corrupt"
	ResultIgnored = "ignored"
)

// Label values for Write.
const (
	WriteSent   = "sent"
	WriteFailed = "failed"
	WriteAcked  = "acked"
	WriteNacked = "nacked"
)

// Collector groups the session metrics.
type Collector struct {
	registry   *prometheus.Registry
	sessions   *prometheus.GaugeVec
	values     *prometheus.CounterVec
	writes     *prometheus.CounterVec
	discovered *prometheus.CounterVec
	schemas    prometheus.Gauge
}

// New creates a Collector registered with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gizmo_accessories",
				Help: "Accessories by lifecycle state.",
			},
			[]string{"state"},
		),
		values: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gizmo_values_total",
				Help: "Parameter values received from peripherals, by result.",
			},
			[]string{"result"},
		),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gizmo_writes_total",
				Help: "Parameter writes by result.",
			},
			[]string{"result"},
		),
		discovered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gizmo_discovered_total",
				Help: "Discovered peripherals by whether a schema matched.",
			},
			[]string{"matched"},
		),
		schemas: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gizmo_schemas",
			Help: "Registered device schemas.",
		}),
	}
	c.registry.MustRegister(c.sessions, c.values, c.writes, c.discovered, c.schemas)
	return c
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StateChanged moves one accessory from the old to the new state gauge.
// An empty state name is not counted.
func (c *Collector) StateChanged(oldState, newState string) {
	if c == nil {
		return
	}
	if oldState != "" {
		c.sessions.WithLabelValues(oldState).Dec()
	}
	if newState != "" {
		c.sessions.WithLabelValues(newState).Inc()
	}
}

// ValueIngested counts a received parameter value.
func (c *Collector) ValueIngested(result string) {
	if c == nil {
		return
	}
	c.values.WithLabelValues(result).Inc()
}

// Write counts a parameter write outcome.
func (c *Collector) Write(result string) {
	if c == nil {
		return
	}
	c.writes.WithLabelValues(result).Inc()
}

// Discovered counts a discovered peripheral.
func (c *Collector) Discovered(matched bool) {
	if c == nil {
		return
	}
	label := "false"
	if matched {
		label = "true"
	}
	c.discovered.WithLabelValues(label).Inc()
}

// SetSchemas records the number of registered schemas.
func (c *Collector) SetSchemas(n int) {
	if c == nil {
		return
	}
	c.schemas.Set(float64(n))
}
