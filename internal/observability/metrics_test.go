package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordAnalysis("ok", 0.02)
	m.RecordRegime("Extreme Greed", 500, 70)
	m.RecordTest(0.034, true)
	m.RecordSuccess(1000, 1700000000)
	m.RecordImport(990, 10)

	path := filepath.Join(t.TempDir(), "sentiment_edge.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `sentiment_edge_analysis_runs_total{status="ok"} 1`)
	assert.Contains(t, out, `sentiment_edge_analysis_regime_trades{regime="Extreme Greed"} 500`)
	assert.Contains(t, out, `sentiment_edge_analysis_regime_mean_pnl{regime="Extreme Greed"} 70`)
	assert.Contains(t, out, "sentiment_edge_analysis_test_p_value 0.034")
	assert.Contains(t, out, "sentiment_edge_analysis_null_rejections_total 1")
	assert.Contains(t, out, "sentiment_edge_analysis_trades_analyzed 1000")
	assert.Contains(t, out, "sentiment_edge_import_trades_total 990")
	assert.Contains(t, out, "sentiment_edge_import_rows_skipped_total 10")
	assert.Contains(t, out, "sentiment_edge_analysis_duration_seconds_count 1")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()
	a.RecordTest(0.5, true)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "sentiment_edge_analysis_null_rejections_total" {
			assert.Equal(t, 0.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAnalysis("error", 1)
		m.RecordRegime("Fear", 1, 1)
		m.RecordTest(1, false)
		m.RecordSuccess(1, 1)
		m.RecordImport(1, 1)
	})
}
