// Package metrics exports per-run counters in the Prometheus textfile format
// read by node_exporter's textfile collector.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/modoterra/bootsift/pkg/executor"
)

// Namespace prefixes every series.
const Namespace = "bootsift"

// Metrics holds one run's series on a private registry, so repeated runs in
// one process never collide with the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	LinesRead    prometheus.Counter
	LinesWritten *prometheus.CounterVec
	UnitFailures *prometheus.CounterVec
	UnitDuration *prometheus.GaugeVec
	RunDuration  prometheus.Gauge
	RunInfo      *prometheus.GaugeVec
}

// New creates and registers the run metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lines_read_total",
			Help:      "Source lines read by the route pass",
		}),
		LinesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "lines_written_total",
				Help:      "Lines written to category artifacts",
			},
			[]string{"category", "stage"},
		),
		UnitFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "unit_failures_total",
				Help:      "Category units that failed and were skipped",
			},
			[]string{"category", "stage"},
		),
		UnitDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "unit_duration_seconds",
				Help:      "Wall time of the last unit per category and stage",
			},
			[]string{"category", "stage"},
		),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Measured elapsed time of the run",
		}),
		RunInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "run_info",
				Help:      "Run identity, always 1",
			},
			[]string{"run_id", "mode"},
		),
	}

	m.registry.MustRegister(
		m.LinesRead,
		m.LinesWritten,
		m.UnitFailures,
		m.UnitDuration,
		m.RunDuration,
		m.RunInfo,
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe records one unit outcome. It satisfies executor.Observer and is
// safe for concurrent use.
func (m *Metrics) Observe(o executor.Outcome) {
	stage := string(o.Stage)
	m.UnitDuration.WithLabelValues(o.Category, stage).Set(o.Duration.Seconds())
	if o.Err != nil {
		m.UnitFailures.WithLabelValues(o.Category, stage).Inc()
		return
	}
	m.LinesWritten.WithLabelValues(o.Category, stage).Add(float64(o.Stats.LinesOut))
}

// RecordRun records the run-level series.
func (m *Metrics) RecordRun(runID, strategy string, linesRead int, d time.Duration) {
	m.LinesRead.Add(float64(linesRead))
	m.RunDuration.Set(d.Seconds())
	m.RunInfo.WithLabelValues(runID, strategy).Set(1)
}

// WriteTextfile atomically writes every series to path.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return errors.New("metrics: empty textfile path")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics textfile %s: %w", path, err)
	}
	return nil
}

var _ executor.Observer = (*Metrics)(nil)
