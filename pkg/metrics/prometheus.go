package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	simulations *prometheus.CounterVec
	paths       *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		simulations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_simulations_total",
				Help: "Total number of completed simulation runs",
			},
			[]string{"method"},
		),
		paths: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_simulated_paths_total",
				Help: "Total number of generated Monte Carlo paths",
			},
			[]string{"method"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_asset_fallbacks_total",
				Help: "Assets forward-filled or excluded instead of modelled",
			},
			[]string{"reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
	}
}

// RecordSimulation counts a finished run and its paths.
func (r *Recorder) RecordSimulation(method string, paths, steps int) {
	r.simulations.WithLabelValues(method).Inc()
	r.paths.WithLabelValues(method).Add(float64(paths))
}

// RecordFallback counts an asset that did not get a model.
func (r *Recorder) RecordFallback(reason string) {
	r.fallbacks.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordSimulation(string, int, int) {}
func (Nop) RecordFallback(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
