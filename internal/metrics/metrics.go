// Package metrics exposes Prometheus instruments for simulation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for a simulation run. Each instance owns
// its registry so that several runs in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	// Dispatched events by kind
	Events *prometheus.CounterVec

	// Living population after the most recent event
	Population prometheus.Gauge

	// Reproduction attempts that found no father
	NoMate prometheus.Counter

	// Remaining lineages at the end of each coalescence walk
	Lineages *prometheus.GaugeVec

	// Wall-clock duration of whole runs
	RunDuration prometheus.Histogram
}

// New creates a Metrics instance with all run metrics registered on a
// private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pedigree_events_total",
			Help: "Total dispatched simulation events by kind",
		}, []string{"kind"}),

		Population: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pedigree_population",
			Help: "Living population size",
		}),

		NoMate: factory.NewCounter(prometheus.CounterOpts{
			Name: "pedigree_reproduction_no_mate_total",
			Help: "Reproduction attempts without an available father",
		}),

		Lineages: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pedigree_lineages",
			Help: "Distinct lineages left at the end of the coalescence walk",
		}, []string{"lineage"}), // lineage: "paternal", "maternal"

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pedigree_run_duration_seconds",
			Help:    "Wall-clock duration of a full simulation run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
	}
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveEvent records one dispatched event and the population after it.
func (m *Metrics) ObserveEvent(kind string, population int) {
	if m != nil {
		m.Events.WithLabelValues(kind).Inc()
		m.Population.Set(float64(population))
	}
}

// SetPopulation records the living population size.
func (m *Metrics) SetPopulation(n int) {
	if m != nil {
		m.Population.Set(float64(n))
	}
}

// AddNoMate records reproduction attempts that found no father.
func (m *Metrics) AddNoMate(n int) {
	if m != nil && n > 0 {
		m.NoMate.Add(float64(n))
	}
}

// SetLineages records the final lineage count of a walk.
func (m *Metrics) SetLineages(lineage string, n int) {
	if m != nil {
		m.Lineages.WithLabelValues(lineage).Set(float64(n))
	}
}

// ObserveRunDuration records the wall-clock duration of a run.
func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}

// WriteTextfile writes the current metrics in the Prometheus text format,
// suitable for the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
