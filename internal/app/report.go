package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"sentimentEdge/internal/analytics"
	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
	"sentimentEdge/internal/risk"
)

// RegimeRow is one line of the regime breakdown.
type RegimeRow struct {
	Stats      analytics.SegmentStats
	Sizing     risk.Recommendation
	SizingErr  error   // Why Sizing.Kelly is NaN, if it is
	BelowFloor bool    // Win rate under the configured floor
	Allocation float64 // Kelly clamped to the display range, NaN when undefined
}

// Report is the result of one analysis run.
type Report struct {
	RunID          string
	GeneratedAt    time.Time
	Filter         domain.TradeFilter
	TradesAnalyzed int
	TradesTotal    int

	Rows  []RegimeRow          // Non-empty regimes, in table order
	Empty []domain.RegimeLabel // Regimes without trades

	PairA, PairB domain.RegimeLabel
	Test         *analytics.TestResult // nil when the test could not run
	TestErr      error

	MinWinRate      float64
	BestRegime      domain.RegimeLabel // Highest mean PnL
	MaxSharpe       float64            // NaN when no regime has a defined Sharpe ratio
	MaxSharpeRegime domain.RegimeLabel
}

// Row returns the breakdown row of a regime.
func (r *Report) Row(label domain.RegimeLabel) (RegimeRow, bool) {
	for _, row := range r.Rows {
		if row.Stats.Regime == label {
			return row, true
		}
	}
	return RegimeRow{}, false
}

// Coverage is the share of stored trades that passed the filter.
func (r *Report) Coverage() float64 {
	if r.TradesTotal == 0 {
		return math.NaN()
	}
	return float64(r.TradesAnalyzed) / float64(r.TradesTotal)
}

// Confidence is 1 - p of the hypothesis test, or NaN when it did not run.
func (r *Report) Confidence() float64 {
	if r.Test == nil {
		return math.NaN()
	}
	return r.Test.Confidence()
}

func (r *Report) bestMean() float64 {
	row, ok := r.Row(r.BestRegime)
	if !ok {
		return math.Inf(-1)
	}
	return row.Stats.MeanPnL
}

// Summary converts the report into its persisted form.
func (r *Report) Summary() ports.AnalysisRun {
	run := ports.AnalysisRun{
		ID:             r.RunID,
		CreatedAt:      r.GeneratedAt,
		FilterSummary:  DescribeFilter(r.Filter),
		TradesAnalyzed: r.TradesAnalyzed,
		TradesTotal:    r.TradesTotal,
		BestRegime:     string(r.BestRegime),
		PairA:          string(r.PairA),
		PairB:          string(r.PairB),
		TStat:          math.NaN(),
		PValue:         math.NaN(),
	}
	if r.Test != nil {
		run.TStat = r.Test.T
		run.PValue = r.Test.PValue
		run.Rejected = r.Test.Reject
	}
	return run
}

// Render writes a human-readable report.
func (r *Report) Render(w io.Writer) error {
	fmt.Fprintf(w, "Run %s  (%s)\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Filter: %s\n", DescribeFilter(r.Filter))
	fmt.Fprintf(w, "Trades analyzed: %d of %d (%s)\n\n", r.TradesAnalyzed, r.TradesTotal, pct(r.Coverage()))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Regime\tTrades\tWinRate\tMeanPnL\tMedian\tTotalPnL\tStdDev\tAvgWin\tAvgLoss\tR:R\tMaxDD\tSharpe\tKelly\tAlloc\t")
	for _, row := range r.Rows {
		s := row.Stats
		flag := ""
		if row.BelowFloor {
			flag = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Regime,
			s.Count,
			flag, pct(s.WinRate),
			num(s.MeanPnL),
			num(s.MedianPnL),
			num(s.TotalPnL),
			num(s.StdDevPnL),
			num(s.AvgWin),
			num(s.AvgLoss),
			num(row.Sizing.RewardRisk),
			num(s.MaxDrawdown),
			num(row.Sizing.Sharpe),
			pct(row.Sizing.Kelly),
			pct(row.Allocation),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Empty) > 0 {
		fmt.Fprintf(w, "\nNo trades in: %v\n", r.Empty)
	}
	if r.hasBelowFloor() {
		fmt.Fprintf(w, "* win rate below %s\n", pct(r.MinWinRate))
	}

	fmt.Fprintf(w, "\nBest regime by mean PnL: %s\n", r.BestRegime)
	if !math.IsNaN(r.MaxSharpe) {
		fmt.Fprintf(w, "Max Sharpe ratio: %s (%s)\n", num(r.MaxSharpe), r.MaxSharpeRegime)
	}

	fmt.Fprintf(w, "\nWelch's t-test: %s vs %s\n", r.PairA, r.PairB)
	if r.Test == nil {
		_, err := fmt.Fprintf(w, "  not run: %v\n", r.TestErr)
		return err
	}
	t := r.Test
	fmt.Fprintf(w, "  n=%d/%d  mean=%s/%s  t=%.4f  df=%.1f  p=%.4g (%s)\n",
		t.NA, t.NB, num(t.MeanA), num(t.MeanB), t.T, t.DF, t.PValue, t.Alternative)
	verdict := "not rejected"
	if t.Reject {
		verdict = "rejected"
	}
	_, err := fmt.Fprintf(w, "  H0 (%s mean <= %s mean) %s at alpha=%g; confidence %s\n",
		r.PairA, r.PairB, verdict, t.Alpha, pct(r.Confidence()))
	return err
}

func (r *Report) hasBelowFloor() bool {
	for _, row := range r.Rows {
		if row.BelowFloor {
			return true
		}
	}
	return false
}

// WriteCSV exports the regime breakdown, one row per regime in table order.
// Undefined values are written as empty cells.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{
		"regime", "trades", "win_rate", "mean_pnl", "median_pnl", "total_pnl", "std_pnl",
		"avg_win", "avg_loss", "reward_risk", "max_drawdown", "max_consecutive_losses",
		"mean_size_usd", "mean_sentiment", "sharpe", "kelly_pct", "allocation", "below_win_rate_floor",
	})
	for _, row := range r.Rows {
		s := row.Stats
		cw.Write([]string{
			string(s.Regime),
			strconv.Itoa(s.Count),
			csvFloat(s.WinRate),
			csvFloat(s.MeanPnL),
			csvFloat(s.MedianPnL),
			csvFloat(s.TotalPnL),
			csvFloat(s.StdDevPnL),
			csvFloat(s.AvgWin),
			csvFloat(s.AvgLoss),
			csvFloat(row.Sizing.RewardRisk),
			csvFloat(s.MaxDrawdown),
			strconv.Itoa(s.MaxConsecutiveLosses),
			csvFloat(s.MeanSize),
			csvFloat(s.MeanSentiment),
			csvFloat(row.Sizing.Sharpe),
			csvFloat(row.Sizing.KellyPct()),
			csvFloat(row.Allocation),
			strconv.FormatBool(row.BelowFloor),
		})
	}
	cw.Flush()
	return cw.Error()
}

func num(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func pct(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}

func csvFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
