package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the trend pipeline.
type Metrics struct {
	Runs          *prometheus.CounterVec   // labels: outcome={success,data_unavailable,empty_selection,error}
	StageDuration *prometheus.HistogramVec // labels: stage
	TimeSamples   prometheus.Gauge
	Cells         prometheus.Gauge
	UndefinedCell prometheus.Gauge
	AverageTrend  prometheus.Gauge
	PublishErrors prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "precip_trend",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "precip_trend",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		TimeSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_trend",
			Name:      "time_samples",
			Help:      "Number of time steps in the resolved window of the last run.",
		}),
		Cells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_trend",
			Name:      "cells",
			Help:      "Number of grid cells inside the bounding box in the last run.",
		}),
		UndefinedCell: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_trend",
			Name:      "undefined_cells",
			Help:      "Number of cells with an undefined trend in the last run.",
		}),
		AverageTrend: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_trend",
			Name:      "average",
			Help:      "Latitude-weighted mean trend of the last run, NaN when undefined.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_trend",
			Name:      "publish_errors_total",
			Help:      "Summary publication failures.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Runs,
		m.StageDuration,
		m.TimeSamples,
		m.Cells,
		m.UndefinedCell,
		m.AverageTrend,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
