package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scour"

// Collector exposes cleaning-run metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	runsActive   prometheus.Gauge
	issuesTotal  *prometheus.CounterVec
	actionsTotal *prometheus.CounterVec
	rowsDropped  prometheus.Counter
	warnings     prometheus.Counter
	qualityScore *prometheus.GaugeVec
}

// NewCollector creates a collector with every metric registered.
func NewCollector() (*Collector, error) {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of cleaning runs",
		},
		[]string{"status"},
	)
	c.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of cleaning runs",
			Buckets:   prometheus.DefBuckets,
		},
	)
	c.runsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of cleaning runs in progress",
		},
	)
	c.issuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_detected_total",
			Help:      "Data-quality issues detected before cleaning",
		},
		[]string{"kind"},
	)
	c.actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_applied_total",
			Help:      "Cleaning actions that changed at least one row",
		},
		[]string{"action"},
	)
	c.rowsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed by cleaning",
		},
	)
	c.warnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Recovered warnings raised during cleaning runs",
		},
	)
	c.qualityScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Most recent quality score per dataset",
		},
		[]string{"dataset", "stage"},
	)

	for _, m := range []prometheus.Collector{
		c.runsTotal, c.runDuration, c.runsActive, c.issuesTotal,
		c.actionsTotal, c.rowsDropped, c.warnings, c.qualityScore,
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return c, nil
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordRunStart marks a run as in progress.
func (c *Collector) RecordRunStart() {
	c.runsActive.Inc()
}

// RecordRunEnd records a finished run.
func (c *Collector) RecordRunEnd(run RunSummary) {
	c.runsActive.Dec()
	c.runsTotal.WithLabelValues(string(run.Status)).Inc()
	c.runDuration.Observe(run.Duration.Seconds())
	if run.Status != StatusSucceeded {
		return
	}
	for kind, n := range run.Issues {
		c.issuesTotal.WithLabelValues(kind).Add(float64(n))
	}
	for action, n := range run.Actions {
		c.actionsTotal.WithLabelValues(action).Add(float64(n))
	}
	c.rowsDropped.Add(float64(run.RowsDropped))
	c.warnings.Add(float64(run.Warnings))
	c.qualityScore.WithLabelValues(run.Dataset, "pre").Set(run.PreScore)
	c.qualityScore.WithLabelValues(run.Dataset, "post").Set(run.PostScore)
}
