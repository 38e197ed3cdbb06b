package loader

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsNamespace = "finbank_cleanse"

// Metrics holds the prometheus collectors of the loader on a private registry
type Metrics struct {
	registry *prometheus.Registry

	EntityDuration    *prometheus.HistogramVec
	RunDuration       prometheus.Histogram
	RowsRead          *prometheus.CounterVec
	RowsLoaded        *prometheus.CounterVec
	Anomalies         *prometheus.CounterVec
	DuplicatesDropped *prometheus.CounterVec
	Runs              *prometheus.CounterVec
	LastSuccess       prometheus.Gauge
}

// NewMetrics creates and registers the loader collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EntityDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "entity_duration_seconds",
			Help:      "Duration of a single entity replacement step.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"entity"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full multi-entity load run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_read_total",
			Help:      "Raw rows read per entity.",
		}, []string{"entity"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_loaded_total",
			Help:      "Cleansed rows written per entity in committed runs.",
		}, []string{"entity"}),
		Anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "anomalies_total",
			Help:      "Values substituted or flagged during cleansing.",
		}, []string{"entity", "reason"}),
		DuplicatesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "duplicates_dropped_total",
			Help:      "Raw rows discarded by primary-key deduplication.",
		}, []string{"entity"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Load runs by final state.",
		}, []string{"state"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last committed run.",
		}),
	}

	m.registry.MustRegister(
		m.EntityDuration,
		m.RunDuration,
		m.RowsRead,
		m.RowsLoaded,
		m.Anomalies,
		m.DuplicatesDropped,
		m.Runs,
		m.LastSuccess,
	)
	return m
}

// Registry returns the registry holding the loader collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRun records a finished run. Row and anomaly counters only move for committed runs.
func (m *Metrics) RecordRun(report *RunReport) {
	m.Runs.WithLabelValues(string(report.State)).Inc()
	m.RunDuration.Observe(report.Duration.Seconds())

	for _, e := range report.Entities {
		name := string(e.Entity)
		m.EntityDuration.WithLabelValues(name).Observe(e.Duration.Seconds())
		m.RowsRead.WithLabelValues(name).Add(float64(e.RowsRead))

		if !report.Succeeded() {
			continue
		}
		m.RowsLoaded.WithLabelValues(name).Add(float64(e.RowsLoaded))
		m.DuplicatesDropped.WithLabelValues(name).Add(float64(e.DuplicatesDropped))
		for reason, n := range e.Anomalies {
			m.Anomalies.WithLabelValues(name, reason).Add(float64(n))
		}
	}

	if report.Succeeded() {
		m.LastSuccess.Set(float64(report.EndTime.Unix()))
	}
}

// Push replaces the job's metric group on a Pushgateway with the collected metrics
func (m *Metrics) Push(ctx context.Context, url string) error {
	err := push.New(url, metricsNamespace).
		Gatherer(m.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
