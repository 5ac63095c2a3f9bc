// Package analytics holds the sentiment-conditioned trade statistics engine:
// regime segmentation, per-segment metrics and Welch's two-sample t-test.
// Every function here is a pure transform of its inputs.
package analytics

import (
	"fmt"
	"math"

	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

// canonical is the default table used by AssignRegime. It is never modified.
var canonical = domain.DefaultRegimeTable()

// ValidateTable checks that the regimes cover [0,100] in order with no gaps or overlaps
// and that labels are unique.
func ValidateTable(table domain.RegimeTable) error {
	if len(table) == 0 {
		return fmt.Errorf("regime table is empty: %w", ports.ErrConfigurationError)
	}
	seen := make(map[domain.RegimeLabel]struct{}, len(table))
	for i, r := range table {
		if r.Label == "" {
			return fmt.Errorf("regime %d has no label: %w", i, ports.ErrConfigurationError)
		}
		if _, dup := seen[r.Label]; dup {
			return fmt.Errorf("duplicate regime label %q: %w", r.Label, ports.ErrConfigurationError)
		}
		seen[r.Label] = struct{}{}

		if !(r.Low < r.High) {
			return fmt.Errorf("regime %q has empty interval [%g,%g): %w", r.Label, r.Low, r.High, ports.ErrConfigurationError)
		}
		if i == 0 && r.Low != domain.SentimentMin {
			return fmt.Errorf("first regime %q must start at %g, got %g: %w", r.Label, domain.SentimentMin, r.Low, ports.ErrConfigurationError)
		}
		if i > 0 && table[i-1].High != r.Low {
			return fmt.Errorf("regimes %q and %q are not contiguous (%g != %g): %w",
				table[i-1].Label, r.Label, table[i-1].High, r.Low, ports.ErrConfigurationError)
		}
	}
	if last := table[len(table)-1]; last.High != domain.SentimentMax {
		return fmt.Errorf("last regime %q must end at %g, got %g: %w", last.Label, domain.SentimentMax, last.High, ports.ErrConfigurationError)
	}
	return nil
}

// AssignRegime maps a sentiment index to its regime in the canonical five-bucket table.
func AssignRegime(index float64) (domain.RegimeLabel, error) {
	return Assign(canonical, index)
}

// Assign maps a sentiment index to its regime in the given table.
// Intervals are lower-inclusive and upper-exclusive, except the last one which is closed.
// The table is assumed valid (see ValidateTable).
func Assign(table domain.RegimeTable, index float64) (domain.RegimeLabel, error) {
	if math.IsNaN(index) || index < domain.SentimentMin || index > domain.SentimentMax {
		return "", fmt.Errorf("sentiment index %g not in [%g,%g]: %w", index, domain.SentimentMin, domain.SentimentMax, ports.ErrOutOfRange)
	}
	last := len(table) - 1
	for i, r := range table {
		if index < r.Low {
			continue
		}
		if index < r.High || (i == last && index <= r.High) {
			return r.Label, nil
		}
	}
	return "", fmt.Errorf("sentiment index %g not covered by regime table: %w", index, ports.ErrOutOfRange)
}

// Segment groups trades by regime. Every regime of the table is present in the result,
// with an empty (non-nil) slice when no trade falls into it. Trade order is preserved
// within each regime.
func Segment(trades []domain.Trade, table domain.RegimeTable) (map[domain.RegimeLabel][]domain.Trade, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}

	segments := make(map[domain.RegimeLabel][]domain.Trade, len(table))
	for _, r := range table {
		segments[r.Label] = []domain.Trade{}
	}
	for _, t := range trades {
		label, err := Assign(table, t.Sentiment)
		if err != nil {
			return nil, fmt.Errorf("trade %d (%s at %s): %w", t.ID, t.Symbol, t.Timestamp.Format("2006-01-02 15:04"), err)
		}
		segments[label] = append(segments[label], t)
	}
	return segments, nil
}
