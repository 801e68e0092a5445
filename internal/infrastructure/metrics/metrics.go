package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the job label used when pushing to a Pushgateway.
const PushJob = "txpipeline"

// Metrics holds all Prometheus metrics of a pipeline process.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	StageRecords *prometheus.GaugeVec
	StageTotal   *prometheus.CounterVec
	RateLookups  *prometheus.CounterVec
	Runs         *prometheus.CounterVec
	RunDuration  prometheus.Histogram
}

// New creates all pipeline metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		StageRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "txpipeline_stage_records",
				Help: "Records produced by each stage in the latest run",
			},
			[]string{"stage"},
		),
		StageTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txpipeline_stage_records_total",
				Help: "Total records produced by each stage",
			},
			[]string{"stage"},
		),
		RateLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txpipeline_rate_lookups_total",
				Help: "Total rate resolutions by result",
			},
			[]string{"result"},
		),
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txpipeline_runs_total",
				Help: "Total pipeline runs by outcome",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txpipeline_run_duration_seconds",
			Help:    "Duration of pipeline runs",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}),
	}
}

// Registry returns the registry holding the pipeline metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordStage records the record count of one stage.
func (m *Metrics) RecordStage(stage string, records int) {
	m.StageRecords.WithLabelValues(stage).Set(float64(records))
	m.StageTotal.WithLabelValues(stage).Add(float64(records))
}

// RecordRateLookup counts one rate resolution.
func (m *Metrics) RecordRateLookup(result string) {
	m.RateLookups.WithLabelValues(result).Inc()
}

// RecordRun records the outcome and duration of a run.
func (m *Metrics) RecordRun(status string, seconds float64) {
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
}

// Push sends every metric to the Pushgateway at url, grouped by run ID.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	pusher := push.New(url, PushJob).Gatherer(m.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
