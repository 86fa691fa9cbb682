// Package metrics exposes Prometheus instrumentation for the diversion
// subsystem.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all diversion metrics.
type Registry struct {
	// Per-queue packet flow
	PacketsDiverted *prometheus.CounterVec
	PacketsDropped  *prometheus.CounterVec
	VerdictErrors   *prometheus.CounterVec

	// Binding lifecycle
	BindingsRunning prometheus.Gauge
	StartFailures   *prometheus.CounterVec
	ShutdownSeconds prometheus.Histogram

	// Redirect rules currently installed
	RedirectRules prometheus.Gauge
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.PacketsDiverted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shunt_packets_diverted_total",
		Help: "Total packets delivered to the diversion callback",
	}, []string{"queue"})

	r.PacketsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shunt_packets_dropped_total",
		Help: "Total diverted packets given a drop verdict",
	}, []string{"queue"})

	r.VerdictErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shunt_verdict_errors_total",
		Help: "Total failures to return a verdict to the kernel",
	}, []string{"queue"})

	r.BindingsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shunt_queue_bindings_running",
		Help: "Queue bindings currently in the running state",
	})

	r.StartFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shunt_queue_start_failures_total",
		Help: "Queue binding setup failures by failing step",
	}, []string{"step"})

	r.ShutdownSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shunt_group_shutdown_seconds",
		Help:    "Wall-clock time to stop a whole binding group",
		Buckets: prometheus.DefBuckets,
	})

	r.RedirectRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shunt_redirect_rules",
		Help: "PREROUTING redirect rules currently installed",
	})

	return r
}

// QueueLabel formats a queue number for use as a metric label.
func QueueLabel(qno uint16) string {
	return strconv.FormatUint(uint64(qno), 10)
}
