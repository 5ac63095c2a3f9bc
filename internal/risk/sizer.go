// Package risk turns segment statistics into capital allocation figures.
package risk

import (
	"fmt"
	"math"

	"sentimentEdge/internal/analytics"
	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

// SizingConfig holds configuration for position sizing
type SizingConfig struct {
	RiskFreeRate float64 // Subtracted from mean PnL in the Sharpe ratio
	RewardRisk   float64 // Fixed reward:risk ratio; 0 estimates it per segment from AvgWin/AvgLoss
}

// Recommendation is the sizing output for one regime.
type Recommendation struct {
	Regime       domain.RegimeLabel
	WinRate      float64
	RewardRisk   float64
	Kelly        float64 // Unclamped Kelly fraction, NaN when it could not be computed
	Sharpe       float64 // NaN when volatility is zero or undefined
	RiskFreeRate float64
}

// KellyPct returns the Kelly fraction as a percentage.
func (r Recommendation) KellyPct() float64 {
	return r.Kelly * 100
}

// HasSharpe reports whether the Sharpe ratio is defined.
func (r Recommendation) HasSharpe() bool {
	return !math.IsNaN(r.Sharpe)
}

// Sizer computes sizing recommendations with a fixed configuration.
type Sizer struct {
	config SizingConfig
}

// NewSizer creates a new position sizer
func NewSizer(config SizingConfig) *Sizer {
	return &Sizer{config: config}
}

// KellyFraction returns f* = W - (1-W)/R. The result is not clamped: a negative value
// means the edge is negative and values above 1 imply leverage.
func KellyFraction(winRate, rewardRisk float64) (float64, error) {
	if math.IsNaN(winRate) || winRate < 0 || winRate > 1 {
		return math.NaN(), fmt.Errorf("win rate %g not in [0,1]: %w", winRate, ports.ErrOutOfRange)
	}
	if rewardRisk == 0 {
		return math.NaN(), fmt.Errorf("reward:risk ratio is zero: %w", ports.ErrDivisionByZero)
	}
	if math.IsNaN(rewardRisk) || rewardRisk < 0 {
		return math.NaN(), fmt.Errorf("reward:risk ratio %g must be positive: %w", rewardRisk, ports.ErrOutOfRange)
	}
	return winRate - (1-winRate)/rewardRisk, nil
}

// SharpeRatio returns (mean - riskFree) / stdDev, or NaN when stdDev is zero, negative or NaN.
func SharpeRatio(mean, riskFree, stdDev float64) float64 {
	if math.IsNaN(stdDev) || stdDev <= 0 {
		return math.NaN()
	}
	return (mean - riskFree) / stdDev
}

// RewardRiskFromStats estimates the reward:risk ratio of a segment as AvgWin / AvgLoss.
func RewardRiskFromStats(stats analytics.SegmentStats) (float64, error) {
	if stats.Wins == 0 || math.IsNaN(stats.AvgWin) {
		return math.NaN(), fmt.Errorf("regime %q has no winning trades: %w", stats.Regime, ports.ErrInsufficientData)
	}
	if stats.Losses == 0 || math.IsNaN(stats.AvgLoss) {
		return math.NaN(), fmt.Errorf("regime %q has no losing trades: %w", stats.Regime, ports.ErrInsufficientData)
	}
	if stats.AvgLoss == 0 {
		return math.NaN(), fmt.Errorf("regime %q losses average zero: %w", stats.Regime, ports.ErrDivisionByZero)
	}
	return stats.AvgWin / stats.AvgLoss, nil
}

// Recommend builds the sizing recommendation for one segment.
// When the Kelly fraction cannot be computed the error is returned together with a
// Recommendation that still carries the Sharpe ratio and a NaN Kelly.
func (s *Sizer) Recommend(stats analytics.SegmentStats) (Recommendation, error) {
	rec := Recommendation{
		Regime:       stats.Regime,
		WinRate:      stats.WinRate,
		RewardRisk:   s.config.RewardRisk,
		Kelly:        math.NaN(),
		Sharpe:       SharpeRatio(stats.MeanPnL, s.config.RiskFreeRate, stats.StdDevPnL),
		RiskFreeRate: s.config.RiskFreeRate,
	}

	if rec.RewardRisk == 0 {
		rr, err := RewardRiskFromStats(stats)
		if err != nil {
			rec.RewardRisk = math.NaN()
			return rec, err
		}
		rec.RewardRisk = rr
	}

	kelly, err := KellyFraction(stats.WinRate, rec.RewardRisk)
	if err != nil {
		return rec, fmt.Errorf("regime %q: %w", stats.Regime, err)
	}
	rec.Kelly = kelly
	return rec, nil
}

// Clamp limits f to [lo, hi]. NaN is returned unchanged.
func Clamp(f, lo, hi float64) float64 {
	if math.IsNaN(f) {
		return f
	}
	return math.Max(lo, math.Min(hi, f))
}
