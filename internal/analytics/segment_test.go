package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

func TestAssignRegime(t *testing.T) {
	tests := []struct {
		index float64
		want  domain.RegimeLabel
	}{
		{0, domain.ExtremeFear},
		{24.999, domain.ExtremeFear},
		{25, domain.Fear},
		{44.9, domain.Fear},
		{45, domain.Neutral},
		{54.99, domain.Neutral},
		{55, domain.Greed},
		{74.5, domain.Greed},
		{75, domain.ExtremeGreed},
		{99.99, domain.ExtremeGreed},
		{100, domain.ExtremeGreed},
	}

	for _, tt := range tests {
		got, err := AssignRegime(tt.index)
		require.NoError(t, err, "index %g", tt.index)
		assert.Equal(t, tt.want, got, "index %g", tt.index)
	}
}

func TestAssignRegime_OutOfRange(t *testing.T) {
	for _, index := range []float64{-1, -0.0001, 100.1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := AssignRegime(index)
		assert.ErrorIs(t, err, ports.ErrOutOfRange, "index %g", index)
	}
}

func TestAssign_CustomTable(t *testing.T) {
	table := domain.RegimeTable{
		{Label: "Fearful", Low: 0, High: 50},
		{Label: "Greedy", Low: 50, High: 100},
	}
	require.NoError(t, ValidateTable(table))

	label, err := Assign(table, 49.99)
	require.NoError(t, err)
	assert.Equal(t, domain.RegimeLabel("Fearful"), label)

	label, err = Assign(table, 50)
	require.NoError(t, err)
	assert.Equal(t, domain.RegimeLabel("Greedy"), label)

	label, err = Assign(table, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.RegimeLabel("Greedy"), label)
}

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name  string
		table domain.RegimeTable
	}{
		{"empty", domain.RegimeTable{}},
		{"missing label", domain.RegimeTable{{Label: "", Low: 0, High: 100}}},
		{"duplicate label", domain.RegimeTable{{Label: "A", Low: 0, High: 50}, {Label: "A", Low: 50, High: 100}}},
		{"empty interval", domain.RegimeTable{{Label: "A", Low: 0, High: 0}, {Label: "B", Low: 0, High: 100}}},
		{"does not start at 0", domain.RegimeTable{{Label: "A", Low: 5, High: 100}}},
		{"gap", domain.RegimeTable{{Label: "A", Low: 0, High: 40}, {Label: "B", Low: 50, High: 100}}},
		{"overlap", domain.RegimeTable{{Label: "A", Low: 0, High: 60}, {Label: "B", Low: 50, High: 100}}},
		{"does not end at 100", domain.RegimeTable{{Label: "A", Low: 0, High: 50}, {Label: "B", Low: 50, High: 90}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateTable(tt.table), ports.ErrConfigurationError)
		})
	}

	assert.NoError(t, ValidateTable(domain.DefaultRegimeTable()))
}

func TestSegment(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{ID: 1, Symbol: "BTC", Timestamp: base, PnL: 10, Sentiment: 10},
		{ID: 2, Symbol: "ETH", Timestamp: base.Add(time.Hour), PnL: -5, Sentiment: 80},
		{ID: 3, Symbol: "BTC", Timestamp: base.Add(2 * time.Hour), PnL: 3, Sentiment: 12},
		{ID: 4, Symbol: "SOL", Timestamp: base.Add(3 * time.Hour), PnL: 7, Sentiment: 100},
	}

	segments, err := Segment(trades, domain.DefaultRegimeTable())
	require.NoError(t, err)

	require.Len(t, segments, 5)
	require.Len(t, segments[domain.ExtremeFear], 2)
	assert.Equal(t, int64(1), segments[domain.ExtremeFear][0].ID)
	assert.Equal(t, int64(3), segments[domain.ExtremeFear][1].ID)
	assert.Len(t, segments[domain.ExtremeGreed], 2)
	assert.NotNil(t, segments[domain.Neutral])
	assert.Empty(t, segments[domain.Neutral])

	total := 0
	for _, s := range segments {
		total += len(s)
	}
	assert.Equal(t, len(trades), total)
}

func TestSegment_Empty(t *testing.T) {
	segments, err := Segment(nil, domain.DefaultRegimeTable())
	require.NoError(t, err)

	require.Len(t, segments, 5)
	for _, label := range domain.DefaultRegimeTable().Labels() {
		s, ok := segments[label]
		assert.True(t, ok, "missing %s", label)
		assert.NotNil(t, s)
		assert.Empty(t, s)
	}
}

func TestSegment_OutOfRangeTrade(t *testing.T) {
	trades := []domain.Trade{
		{ID: 1, PnL: 1, Sentiment: 50},
		{ID: 2, PnL: 1, Sentiment: 101},
	}
	_, err := Segment(trades, domain.DefaultRegimeTable())
	assert.ErrorIs(t, err, ports.ErrOutOfRange)
}

func TestSegment_InvalidTable(t *testing.T) {
	_, err := Segment(nil, domain.RegimeTable{{Label: "A", Low: 0, High: 50}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
