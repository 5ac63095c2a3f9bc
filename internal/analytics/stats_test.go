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

func tradesWithPnL(sentiment float64, pnls ...float64) []domain.Trade {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := make([]domain.Trade, len(pnls))
	for i, p := range pnls {
		trades[i] = domain.Trade{
			ID:        int64(i + 1),
			Symbol:    "BTC",
			Side:      domain.Buy,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			PnL:       p,
			Size:      1000,
			Sentiment: sentiment,
		}
	}
	return trades
}

func TestCompute(t *testing.T) {
	stats, err := Compute(tradesWithPnL(60, 10, -5, 20, -15, 0))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 3, stats.Losses)
	assert.InDelta(t, 0.4, stats.WinRate, 1e-12)
	assert.InDelta(t, 2.0, stats.MeanPnL, 1e-12)
	assert.InDelta(t, 0.0, stats.MedianPnL, 1e-12)
	assert.InDelta(t, 10.0, stats.TotalPnL, 1e-12)
	// deviations 8,-7,18,-17,-2 -> squares sum 730, /4
	assert.InDelta(t, math.Sqrt(182.5), stats.StdDevPnL, 1e-12)
	assert.InDelta(t, 15.0, stats.AvgWin, 1e-12)
	assert.InDelta(t, 20.0/3, stats.AvgLoss, 1e-12)
	// cumulative 10,5,25,10,10: peak 25, trough 10
	assert.InDelta(t, 15.0, stats.MaxDrawdown, 1e-12)
	assert.Equal(t, 2, stats.MaxConsecutiveLosses)
	assert.InDelta(t, 1000.0, stats.MeanSize, 1e-12)
	assert.InDelta(t, 60.0, stats.MeanSentiment, 1e-12)
}

func TestCompute_Empty(t *testing.T) {
	_, err := Compute(nil)
	assert.ErrorIs(t, err, ports.ErrInsufficientData)

	_, err = ComputeSegment(domain.Greed, []domain.Trade{})
	assert.ErrorIs(t, err, ports.ErrInsufficientData)
}

func TestCompute_SingleTrade(t *testing.T) {
	stats, err := Compute(tradesWithPnL(50, 100))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1.0, stats.WinRate)
	assert.Equal(t, 100.0, stats.MeanPnL)
	assert.Equal(t, 100.0, stats.MedianPnL)
	assert.True(t, math.IsNaN(stats.StdDevPnL))
	assert.True(t, math.IsNaN(stats.AvgLoss))

	_, err = stats.Volatility()
	assert.ErrorIs(t, err, ports.ErrInsufficientData)
}

func TestCompute_ZeroPnLIsNotAWin(t *testing.T) {
	stats, err := Compute(tradesWithPnL(50, 0, 0, 5))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 2, stats.Losses)
	assert.InDelta(t, 1.0/3, stats.WinRate, 1e-12)
	assert.Equal(t, 0.0, stats.AvgLoss)
}

func TestCompute_NumericalStability(t *testing.T) {
	// Small variations on a huge offset lose all precision with the textbook
	// sum-of-squares formula.
	const offset = 1e9
	stats, err := Compute(tradesWithPnL(50, offset+4, offset+7, offset+13, offset+16))
	require.NoError(t, err)

	assert.InDelta(t, offset+10, stats.MeanPnL, 1e-6)
	assert.InDelta(t, math.Sqrt(30), stats.StdDevPnL, 1e-6)

	// Naive left-to-right summation returns 0 here.
	assert.Equal(t, 2.0, compensatedSum([]float64{1, 1e100, 1, -1e100}))
}

func TestCompute_DrawdownUsesTimeOrder(t *testing.T) {
	trades := tradesWithPnL(50, 10, -30, 5)
	// Shuffle the input order; drawdown must still follow timestamps.
	shuffled := []domain.Trade{trades[2], trades[0], trades[1]}

	stats, err := Compute(shuffled)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, stats.MaxDrawdown, 1e-12)
	assert.Equal(t, 1, stats.MaxConsecutiveLosses)
}

func TestVolatility(t *testing.T) {
	stats, err := Compute(tradesWithPnL(50, 1, 3))
	require.NoError(t, err)

	vol, err := stats.Volatility()
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, vol, 1e-12)
}

func TestComputeAll(t *testing.T) {
	var trades []domain.Trade
	trades = append(trades, tradesWithPnL(10, 5, -5, 10)...)
	trades = append(trades, tradesWithPnL(60, 1, 2)...)
	trades = append(trades, tradesWithPnL(90, -3)...)

	table := domain.DefaultRegimeTable()
	segments, err := Segment(trades, table)
	require.NoError(t, err)

	b := ComputeAll(segments, table)

	require.Len(t, b.Stats, 3)
	assert.Equal(t, domain.ExtremeFear, b.Stats[0].Regime)
	assert.Equal(t, domain.Greed, b.Stats[1].Regime)
	assert.Equal(t, domain.ExtremeGreed, b.Stats[2].Regime)
	assert.Equal(t, []domain.RegimeLabel{domain.Fear, domain.Neutral}, b.Empty)

	greed, ok := b.Get(domain.Greed)
	require.True(t, ok)
	assert.Equal(t, 2, greed.Count)
	assert.InDelta(t, 1.5, greed.MeanPnL, 1e-12)

	_, ok = b.Get(domain.Neutral)
	assert.False(t, ok)

	// Segments are read, never written.
	assert.Len(t, segments[domain.ExtremeFear], 3)
	assert.Equal(t, 5.0, segments[domain.ExtremeFear][0].PnL)
}

func TestComputeAll_MatchesSequential(t *testing.T) {
	var trades []domain.Trade
	for i, s := range []float64{5, 30, 50, 60, 80} {
		trades = append(trades, tradesWithPnL(s, float64(i), float64(-i), float64(2*i+1), 0.5)...)
	}
	table := domain.DefaultRegimeTable()
	segments, err := Segment(trades, table)
	require.NoError(t, err)

	b := ComputeAll(segments, table)
	require.Len(t, b.Stats, 5)
	for _, got := range b.Stats {
		want, err := ComputeSegment(got.Regime, segments[got.Regime])
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
