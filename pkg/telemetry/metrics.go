package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for exploration runs. It satisfies
// the exploration engine's Observer contract, so wiring it into a manager
// is just passing it as the Observer.
type Metrics struct {
	config MetricsConfig

	// Round metrics
	roundsCompleted *prometheus.CounterVec
	roundDuration   *prometheus.HistogramVec
	statesSelected  *prometheus.CounterVec
	statesProduced  *prometheus.CounterVec

	// Stash metrics
	stashSize *prometheus.GaugeVec

	// Failure metrics
	statesFailed prometheus.Counter

	// Spill metrics
	statesSpilled  prometheus.Counter
	statesRestored prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector. When disabled, every method is a
// no-op so callers never need to branch.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		roundsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rounds_completed_total",
				Help:      "Total number of stepping rounds completed",
			},
			[]string{"stash"},
		),
		roundDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "round_duration_seconds",
				Help:      "Duration of one stepping round in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stash"},
		),
		statesSelected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "states_selected_total",
				Help:      "Total number of states selected for stepping",
			},
			[]string{"stash"},
		),
		statesProduced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "states_produced_total",
				Help:      "Total number of successor states produced",
			},
			[]string{"stash"},
		),
		stashSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stash_size",
				Help:      "Current number of states per stash",
			},
			[]string{"stash"},
		),
		statesFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "states_failed_total",
				Help:      "Total number of states quarantined into errored",
			},
		),
		statesSpilled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "states_spilled_total",
				Help:      "Total number of states evicted to secondary storage",
			},
		),
		statesRestored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "states_restored_total",
				Help:      "Total number of states restored from secondary storage",
			},
		),
	}

	registry.MustRegister(
		m.roundsCompleted,
		m.roundDuration,
		m.statesSelected,
		m.statesProduced,
		m.stashSize,
		m.statesFailed,
		m.statesSpilled,
		m.statesRestored,
	)

	return m, nil
}

// RoundCompleted implements the Observer contract.
func (m *Metrics) RoundCompleted(stash string, selected, produced int, elapsed time.Duration) {
	if m.registry == nil {
		return
	}
	m.roundsCompleted.WithLabelValues(stash).Inc()
	m.roundDuration.WithLabelValues(stash).Observe(elapsed.Seconds())
	m.statesSelected.WithLabelValues(stash).Add(float64(selected))
	m.statesProduced.WithLabelValues(stash).Add(float64(produced))
}

// StashResized implements the Observer contract.
func (m *Metrics) StashResized(stash string, size int) {
	if m.registry == nil {
		return
	}
	m.stashSize.WithLabelValues(stash).Set(float64(size))
}

// StateFailed implements the Observer contract.
func (m *Metrics) StateFailed(string) {
	if m.registry == nil {
		return
	}
	m.statesFailed.Inc()
}

// StatesSpilled implements the Observer contract.
func (m *Metrics) StatesSpilled(n int) {
	if m.registry == nil {
		return
	}
	m.statesSpilled.Add(float64(n))
}

// StatesRestored implements the Observer contract.
func (m *Metrics) StatesRestored(n int) {
	if m.registry == nil {
		return
	}
	m.statesRestored.Add(float64(n))
}

// Handler returns the Prometheus scrape handler, or nil when disabled.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
