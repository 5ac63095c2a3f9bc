package domain

import "time"

// Trade represents a single closed trade tagged with the market sentiment at trade time.
// Trades are values: analytics code aggregates over them and never modifies them.
type Trade struct {
	ID        int64     // Unique identifier (from DB, 0 if not persisted)
	Account   string    // Account that executed the trade (optional)
	Symbol    string    // Traded asset (e.g., "BTC")
	Side      OrderSide // BUY or SELL
	Timestamp time.Time // Execution time
	PnL       float64   // Realized profit and loss in currency units
	Size      float64   // Position size in USD (non-negative)
	Sentiment float64   // Fear & Greed index value on the trade day, in [0,100]
}

// IsWin reports whether the trade closed with a strictly positive PnL.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// TradeFilter narrows a trade set before analysis.
// Zero values mean "no restriction" for every field.
type TradeFilter struct {
	From    time.Time   // Inclusive start day
	To      time.Time   // Inclusive end day
	Symbols []string    // Allowed symbols
	Sides   []OrderSide // Allowed sides
}

// IsZero reports whether the filter lets every trade through.
func (f TradeFilter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() && len(f.Symbols) == 0 && len(f.Sides) == 0
}

// Match reports whether a trade passes the filter.
// Date bounds compare calendar days, so To includes the whole end day.
func (f TradeFilter) Match(t Trade) bool {
	day := dayKey(t.Timestamp)
	if !f.From.IsZero() && day < dayKey(f.From) {
		return false
	}
	if !f.To.IsZero() && day > dayKey(f.To) {
		return false
	}
	if len(f.Symbols) > 0 && !containsString(f.Symbols, t.Symbol) {
		return false
	}
	if len(f.Sides) > 0 {
		found := false
		for _, s := range f.Sides {
			if s == t.Side {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply returns the trades that pass the filter, in their original order.
// The input slice is not modified.
func (f TradeFilter) Apply(trades []Trade) []Trade {
	if f.IsZero() {
		out := make([]Trade, len(trades))
		copy(out, trades)
		return out
	}
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// PnLs extracts the PnL column of a trade slice.
func PnLs(trades []Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.PnL
	}
	return out
}

// dayKey encodes the calendar date of t, in t's own location, as yyyymmdd.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
