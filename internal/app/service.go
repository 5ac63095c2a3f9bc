package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"sentimentEdge/config"
	"sentimentEdge/internal/analytics"
	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/observability"
	"sentimentEdge/internal/ports"
	"sentimentEdge/internal/risk"
)

// AnalysisService runs the sentiment regime analysis over stored trades.
// It holds no dataset state: every request carries its own filter and trade set.
type AnalysisService struct {
	cfg      *config.Config
	logger   ports.Logger
	trades   ports.TradeRepository
	runs     ports.RunRepository
	metrics  *observability.Metrics // Optional
	sizer    *risk.Sizer
	testOpts analytics.TestOptions

	now   func() time.Time
	newID func() string
}

// NewAnalysisService creates a new application service instance.
func NewAnalysisService(
	cfg *config.Config,
	logger ports.Logger,
	trades ports.TradeRepository,
	runs ports.RunRepository,
	metrics *observability.Metrics,
) (*AnalysisService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || trades == nil || runs == nil {
		return nil, fmt.Errorf("missing required dependencies for AnalysisService: %w", ports.ErrConfigurationError)
	}

	// Validate config values needed by service
	if err := analytics.ValidateTable(cfg.Regimes); err != nil {
		return nil, err
	}
	alt, err := analytics.ParseAlternative(cfg.Alternative)
	if err != nil {
		return nil, fmt.Errorf("configuration Alternative: %v: %w", err, ports.ErrConfigurationError)
	}
	if !cfg.Regimes.Has(domain.RegimeLabel(cfg.PairA)) || !cfg.Regimes.Has(domain.RegimeLabel(cfg.PairB)) {
		return nil, fmt.Errorf("test pair %q vs %q not in regime table: %w", cfg.PairA, cfg.PairB, ports.ErrConfigurationError)
	}

	return &AnalysisService{
		cfg:     cfg,
		logger:  logger,
		trades:  trades,
		runs:    runs,
		metrics: metrics,
		sizer: risk.NewSizer(risk.SizingConfig{
			RiskFreeRate: cfg.RiskFreeRate,
			RewardRisk:   cfg.RewardRisk,
		}),
		testOpts: analytics.TestOptions{Alpha: cfg.Alpha, Alternative: alt},
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}, nil
}

// Import stores sentiment-tagged trades. With replace set, previously stored trades are
// deleted first. Trades whose sentiment falls outside the index range are rejected
// before anything is written.
func (s *AnalysisService) Import(ctx context.Context, trades []domain.Trade, replace bool) (int, error) {
	for i, t := range trades {
		if _, err := analytics.Assign(s.cfg.Regimes, t.Sentiment); err != nil {
			return 0, fmt.Errorf("trade %d (%s): %w", i, t.Symbol, err)
		}
	}

	if replace {
		if err := s.trades.DeleteAllTrades(ctx); err != nil {
			s.logger.Error(ctx, err, "Failed to clear stored trades")
			return 0, err
		}
	}

	n, err := s.trades.CreateTrades(ctx, trades)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to store trades", map[string]interface{}{"count": len(trades)})
		return 0, err
	}
	s.logger.Info(ctx, "Trades imported", map[string]interface{}{"stored": n, "replace": replace})
	return n, nil
}

// Run loads the trades matching filter, analyzes them, and stores a run summary.
func (s *AnalysisService) Run(ctx context.Context, filter domain.TradeFilter) (*Report, error) {
	start := s.now()

	report, err := s.run(ctx, filter)
	elapsed := s.now().Sub(start).Seconds()
	if err != nil {
		status := "error"
		if errors.Is(err, ports.ErrInsufficientData) {
			status = "empty"
		}
		s.metrics.RecordAnalysis(status, elapsed)
		return nil, err
	}

	s.metrics.RecordAnalysis("ok", elapsed)
	s.metrics.RecordSuccess(report.TradesAnalyzed, report.GeneratedAt.Unix())
	for _, row := range report.Rows {
		s.metrics.RecordRegime(string(row.Stats.Regime), row.Stats.Count, row.Stats.MeanPnL)
	}
	if report.Test != nil {
		s.metrics.RecordTest(report.Test.PValue, report.Test.Reject)
	}
	return report, nil
}

func (s *AnalysisService) run(ctx context.Context, filter domain.TradeFilter) (*Report, error) {
	total, err := s.trades.CountTrades(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to count stored trades")
		return nil, err
	}

	trades, err := s.trades.FindTrades(ctx, filter)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load trades", map[string]interface{}{"filter": DescribeFilter(filter)})
		return nil, err
	}
	if len(trades) == 0 {
		s.logger.Warn(ctx, "No trades match the filter", map[string]interface{}{"filter": DescribeFilter(filter), "stored": total})
		return nil, fmt.Errorf("no trades match filter %q: %w", DescribeFilter(filter), ports.ErrInsufficientData)
	}

	report, err := s.Analyze(ctx, trades, filter)
	if err != nil {
		return nil, err
	}
	report.TradesTotal = total

	run := report.Summary()
	if err := s.runs.SaveRun(ctx, &run); err != nil {
		// The report is still valid; history is best effort.
		s.logger.Error(ctx, err, "Failed to store analysis run", map[string]interface{}{"runID": run.ID})
	}
	return report, nil
}

// Analyze builds a report from an explicit trade set. TradesTotal is set to len(trades);
// Run overwrites it with the number of stored trades.
func (s *AnalysisService) Analyze(ctx context.Context, trades []domain.Trade, filter domain.TradeFilter) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %v: %w", err, ports.ErrContextCanceled)
	}

	segments, err := analytics.Segment(trades, s.cfg.Regimes)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to segment trades by sentiment regime")
		return nil, err
	}

	breakdown := analytics.ComputeAll(segments, s.cfg.Regimes)

	report := &Report{
		RunID:          s.newID(),
		GeneratedAt:    s.now(),
		Filter:         filter,
		TradesAnalyzed: len(trades),
		TradesTotal:    len(trades),
		Empty:          breakdown.Empty,
		PairA:          domain.RegimeLabel(s.cfg.PairA),
		PairB:          domain.RegimeLabel(s.cfg.PairB),
		MinWinRate:     s.cfg.MinWinRate,
		MaxSharpe:      math.NaN(),
	}

	for _, st := range breakdown.Stats {
		row := RegimeRow{Stats: st, BelowFloor: st.WinRate < s.cfg.MinWinRate}
		row.Sizing, row.SizingErr = s.sizer.Recommend(st)
		row.Allocation = risk.Clamp(row.Sizing.Kelly, s.cfg.KellyFloor, s.cfg.KellyCap)
		if row.SizingErr != nil {
			s.logger.Debug(ctx, "Kelly fraction undefined for regime", map[string]interface{}{
				"regime": string(st.Regime),
				"reason": row.SizingErr.Error(),
			})
		}
		report.Rows = append(report.Rows, row)

		if report.BestRegime == "" || st.MeanPnL > report.bestMean() {
			report.BestRegime = st.Regime
		}
		if row.Sizing.HasSharpe() && (math.IsNaN(report.MaxSharpe) || row.Sizing.Sharpe > report.MaxSharpe) {
			report.MaxSharpe = row.Sizing.Sharpe
			report.MaxSharpeRegime = st.Regime
		}
	}

	res, err := analytics.CompareRegimes(segments, report.PairA, report.PairB, s.testOpts)
	if err != nil {
		report.TestErr = err
		s.logger.Warn(ctx, "Hypothesis test could not run", map[string]interface{}{
			"regimeA": s.cfg.PairA,
			"regimeB": s.cfg.PairB,
			"reason":  err.Error(),
		})
	} else {
		report.Test = &res
	}

	s.logger.Info(ctx, "Analysis complete", map[string]interface{}{
		"runID":      report.RunID,
		"trades":     report.TradesAnalyzed,
		"regimes":    len(report.Rows),
		"bestRegime": string(report.BestRegime),
		"rejected":   report.Test != nil && report.Test.Reject,
	})
	return report, nil
}

// History returns the most recent stored runs, newest first.
func (s *AnalysisService) History(ctx context.Context, limit int) ([]*ports.AnalysisRun, error) {
	if limit <= 0 {
		limit = s.cfg.RunHistoryLimit
	}
	runs, err := s.runs.FindRuns(ctx, limit)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load analysis history")
		return nil, err
	}
	return runs, nil
}

// RunByID returns one stored run, or ErrNotFound.
func (s *AnalysisService) RunByID(ctx context.Context, id string) (*ports.AnalysisRun, error) {
	run, err := s.runs.FindRunByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("analysis run %s: %w", id, ports.ErrNotFound)
	}
	return run, nil
}

// DescribeFilter renders a filter for logs and the run history.
func DescribeFilter(f domain.TradeFilter) string {
	if f.IsZero() {
		return "all trades"
	}
	var parts []string
	if !f.From.IsZero() {
		parts = append(parts, "from="+f.From.Format("2006-01-02"))
	}
	if !f.To.IsZero() {
		parts = append(parts, "to="+f.To.Format("2006-01-02"))
	}
	if len(f.Symbols) > 0 {
		parts = append(parts, "symbols="+strings.Join(f.Symbols, ","))
	}
	if len(f.Sides) > 0 {
		sides := make([]string, len(f.Sides))
		for i, side := range f.Sides {
			sides[i] = string(side)
		}
		parts = append(parts, "sides="+strings.Join(sides, ","))
	}
	return strings.Join(parts, " ")
}
