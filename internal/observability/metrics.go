// Package observability provides Prometheus metrics for analysis runs.
// The tool is a batch command, so metrics are collected in a private registry and
// optionally dumped in the node_exporter textfile format at the end of a run.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentiment_edge"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	TradesAnalyzed   prometheus.Gauge
	RegimeTrades     *prometheus.GaugeVec
	RegimeMeanPnL    *prometheus.GaugeVec
	TestPValue       prometheus.Gauge
	NullRejections   prometheus.Counter

	// Import metrics
	TradesImported prometheus.Counter
	RowsSkipped    prometheus.Counter

	// Health metrics
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by status",
		}, []string{"status"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Wall time of one analysis run",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		TradesAnalyzed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "trades_analyzed",
			Help:      "Number of trades that passed the filter in the last run",
		}),
		RegimeTrades: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "regime_trades",
			Help:      "Number of trades per sentiment regime in the last run",
		}, []string{"regime"}),
		RegimeMeanPnL: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "regime_mean_pnl",
			Help:      "Mean trade PnL per sentiment regime in the last run",
		}, []string{"regime"}),
		TestPValue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "test_p_value",
			Help:      "P-value of the regime hypothesis test in the last run",
		}),
		NullRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "null_rejections_total",
			Help:      "Total number of runs whose hypothesis test rejected the null",
		}),

		TradesImported: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "trades_total",
			Help:      "Total number of trades stored by the importer",
		}),
		RowsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_skipped_total",
			Help:      "Total number of CSV rows dropped for lacking a sentiment day",
		}),

		LastSuccessfulAnalysis: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of the last successful analysis",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAnalysis records the outcome of one analysis run.
func (m *Metrics) RecordAnalysis(status string, seconds float64) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(status).Inc()
	m.AnalysisDuration.Observe(seconds)
}

// RecordRegime sets the per-regime gauges.
func (m *Metrics) RecordRegime(regime string, trades int, meanPnL float64) {
	if m == nil {
		return
	}
	m.RegimeTrades.WithLabelValues(regime).Set(float64(trades))
	m.RegimeMeanPnL.WithLabelValues(regime).Set(meanPnL)
}

// RecordTest records the hypothesis test outcome.
func (m *Metrics) RecordTest(pValue float64, rejected bool) {
	if m == nil {
		return
	}
	m.TestPValue.Set(pValue)
	if rejected {
		m.NullRejections.Inc()
	}
}

// RecordSuccess marks a successful analysis of n trades at unix time ts.
func (m *Metrics) RecordSuccess(n int, ts int64) {
	if m == nil {
		return
	}
	m.TradesAnalyzed.Set(float64(n))
	m.LastSuccessfulAnalysis.Set(float64(ts))
}

// RecordImport records an importer run.
func (m *Metrics) RecordImport(stored, skipped int) {
	if m == nil {
		return
	}
	m.TradesImported.Add(float64(stored))
	m.RowsSkipped.Add(float64(skipped))
}

// WriteTextfile dumps all metrics to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
