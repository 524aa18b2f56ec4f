// Package metrics exposes prometheus instrumentation for batch runs and
// position sweeps. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	registry *prometheus.Registry

	SymbolsProcessed prometheus.Counter
	SymbolFailures   *prometheus.CounterVec // labels: stage
	FetchRetries     *prometheus.CounterVec // labels: provider
	BreakerTrips     *prometheus.CounterVec // labels: provider
	ComputeDur       prometheus.Histogram
	BatchDur         prometheus.Histogram
	StateRejections  prometheus.Counter
	ExitAlerts       *prometheus.CounterVec // labels: severity
	LastBatchTime    prometheus.Gauge
}

// New creates the metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SymbolsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_engine_symbols_processed_total",
			Help: "Symbols analyzed successfully",
		}),
		SymbolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_engine_symbol_failures_total",
			Help: "Per-symbol failures by pipeline stage",
		}, []string{"stage"}),
		FetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_engine_fetch_retries_total",
			Help: "Provider fetch retries",
		}, []string{"provider"}),
		BreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_engine_circuit_breaker_trips_total",
			Help: "Provider circuit breaker transitions to open",
		}, []string{"provider"}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signal_engine_symbol_compute_duration_seconds",
			Help:    "Indicator and signal computation latency per symbol",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		BatchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signal_engine_batch_duration_seconds",
			Help:    "Wall time of a batch run",
			Buckets: prometheus.DefBuckets,
		}),
		StateRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_engine_box_state_rejections_total",
			Help: "Consolidation-box transitions rejected as incompatible",
		}),
		ExitAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_engine_exit_alerts_total",
			Help: "Exit alerts produced by severity",
		}, []string{"severity"}),
		LastBatchTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_engine_last_batch_timestamp_seconds",
			Help: "Unix time the last batch finished",
		}),
	}

	m.registry.MustRegister(
		m.SymbolsProcessed,
		m.SymbolFailures,
		m.FetchRetries,
		m.BreakerTrips,
		m.ComputeDur,
		m.BatchDur,
		m.StateRejections,
		m.ExitAlerts,
		m.LastBatchTime,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SymbolOK(compute time.Duration) {
	if m == nil {
		return
	}
	m.SymbolsProcessed.Inc()
	m.ComputeDur.Observe(compute.Seconds())
}

func (m *Metrics) SymbolFailed(stage string) {
	if m == nil {
		return
	}
	m.SymbolFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) FetchRetried(provider string) {
	if m == nil {
		return
	}
	m.FetchRetries.WithLabelValues(provider).Inc()
}

func (m *Metrics) BreakerOpened(provider string) {
	if m == nil {
		return
	}
	m.BreakerTrips.WithLabelValues(provider).Inc()
}

func (m *Metrics) StateRejected() {
	if m == nil {
		return
	}
	m.StateRejections.Inc()
}

func (m *Metrics) ExitAlert(severity string) {
	if m == nil {
		return
	}
	m.ExitAlerts.WithLabelValues(severity).Inc()
}

// BatchDone records a finished batch.
func (m *Metrics) BatchDone(d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDur.Observe(d.Seconds())
	m.LastBatchTime.SetToCurrentTime()
}
