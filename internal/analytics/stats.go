package analytics

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

// SegmentStats holds descriptive statistics for the trades of one regime.
// Fields that cannot be computed from the sample are NaN, never zero.
type SegmentStats struct {
	Regime domain.RegimeLabel

	// Counts
	Count  int
	Wins   int
	Losses int // PnL <= 0

	// PnL distribution
	WinRate   float64 // Wins / Count; PnL exactly 0 is not a win
	MeanPnL   float64
	MedianPnL float64
	TotalPnL  float64
	StdDevPnL float64 // Sample standard deviation (n-1), NaN when Count < 2

	// Win/loss profile
	AvgWin  float64 // Mean PnL of winning trades, NaN without wins
	AvgLoss float64 // Mean loss magnitude of non-winning trades (positive), NaN without losses

	// Order-dependent metrics, computed on trades sorted by timestamp
	MaxDrawdown          float64 // Worst peak-to-trough of cumulative PnL
	MaxConsecutiveLosses int

	MeanSize      float64 // Mean position size in USD
	MeanSentiment float64 // Mean sentiment index of the segment
}

// Volatility returns the PnL standard deviation, or ErrInsufficientData when the
// segment has fewer than two trades.
func (s SegmentStats) Volatility() (float64, error) {
	if s.Count < 2 || math.IsNaN(s.StdDevPnL) {
		return math.NaN(), fmt.Errorf("standard deviation needs at least 2 trades, have %d: %w", s.Count, ports.ErrInsufficientData)
	}
	return s.StdDevPnL, nil
}

// Compute calculates statistics for a set of trades.
// It fails with ErrInsufficientData on an empty input. A single trade yields a partial
// result: every statistic is filled except StdDevPnL, which is NaN.
func Compute(trades []domain.Trade) (SegmentStats, error) {
	n := len(trades)
	if n == 0 {
		return SegmentStats{}, fmt.Errorf("cannot compute statistics of an empty segment: %w", ports.ErrInsufficientData)
	}

	pnls := make([]float64, n)
	sizes := make([]float64, n)
	sentiments := make([]float64, n)
	var wins, losses []float64
	for i, t := range trades {
		pnls[i] = t.PnL
		sizes[i] = t.Size
		sentiments[i] = t.Sentiment
		if t.IsWin() {
			wins = append(wins, t.PnL)
		} else {
			losses = append(losses, t.PnL)
		}
	}

	m, variance := meanVariance(pnls)
	stats := SegmentStats{
		Count:         n,
		Wins:          len(wins),
		Losses:        len(losses),
		WinRate:       float64(len(wins)) / float64(n),
		MeanPnL:       m,
		MedianPnL:     median(pnls),
		TotalPnL:      compensatedSum(pnls),
		StdDevPnL:     math.Sqrt(variance),
		AvgWin:        math.NaN(),
		AvgLoss:       math.NaN(),
		MeanSize:      mean(sizes),
		MeanSentiment: mean(sentiments),
	}
	if len(wins) > 0 {
		stats.AvgWin = mean(wins)
	}
	if len(losses) > 0 {
		stats.AvgLoss = math.Abs(mean(losses))
	}

	ordered := chronological(trades)
	stats.MaxDrawdown = maxDrawdown(ordered)
	stats.MaxConsecutiveLosses = maxConsecutiveLosses(ordered)

	return stats, nil
}

// ComputeSegment is Compute with the regime label attached to the result.
func ComputeSegment(label domain.RegimeLabel, trades []domain.Trade) (SegmentStats, error) {
	stats, err := Compute(trades)
	if err != nil {
		return SegmentStats{}, fmt.Errorf("regime %q: %w", label, err)
	}
	stats.Regime = label
	return stats, nil
}

// Breakdown is the per-regime statistics of a segmented trade set.
type Breakdown struct {
	Stats []SegmentStats       // Non-empty regimes, in table order
	Empty []domain.RegimeLabel // Regimes without trades, in table order
}

// Get returns the statistics of one regime.
func (b Breakdown) Get(label domain.RegimeLabel) (SegmentStats, bool) {
	for _, s := range b.Stats {
		if s.Regime == label {
			return s, true
		}
	}
	return SegmentStats{}, false
}

// ComputeAll computes statistics for every regime of the table concurrently.
// Each regime is processed on its own goroutine over its own slice. Regimes without
// trades are listed in Breakdown.Empty instead of being reported with zero statistics.
func ComputeAll(segments map[domain.RegimeLabel][]domain.Trade, table domain.RegimeTable) Breakdown {
	results := make([]*SegmentStats, len(table))

	var wg sync.WaitGroup
	for i, r := range table {
		trades := segments[r.Label]
		if len(trades) == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, label domain.RegimeLabel, trades []domain.Trade) {
			defer wg.Done()
			stats, err := ComputeSegment(label, trades)
			if err != nil {
				return // only possible for empty input, excluded above
			}
			results[i] = &stats
		}(i, r.Label, trades)
	}
	wg.Wait()

	var b Breakdown
	for i, r := range table {
		if results[i] == nil {
			b.Empty = append(b.Empty, r.Label)
			continue
		}
		b.Stats = append(b.Stats, *results[i])
	}
	return b
}

// median uses the mean of the two middle values for even-sized samples.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// chronological returns a copy of trades sorted by timestamp, then ID.
func chronological(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// maxDrawdown is the largest drop of cumulative PnL below its running peak.
// The peak starts at zero, so an initial losing streak counts as drawdown.
func maxDrawdown(trades []domain.Trade) float64 {
	var cumulative, peak, worst float64
	for _, t := range trades {
		cumulative += t.PnL
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > worst {
			worst = dd
		}
	}
	return worst
}

func maxConsecutiveLosses(trades []domain.Trade) int {
	longest, current := 0, 0
	for _, t := range trades {
		if t.IsWin() {
			current = 0
			continue
		}
		current++
		if current > longest {
			longest = current
		}
	}
	return longest
}
