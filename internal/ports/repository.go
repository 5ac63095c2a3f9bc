package ports

import (
	"context"
	"time"

	"sentimentEdge/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving sentiment-tagged trades.
type TradeRepository interface {
	// CreateTrades saves a batch of trades atomically and returns the number stored.
	CreateTrades(ctx context.Context, trades []domain.Trade) (int, error)
	// FindTrades retrieves trades matching the filter, ordered by timestamp ascending.
	FindTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error)
	// CountTrades counts all stored trades, ignoring any filter.
	CountTrades(ctx context.Context) (int, error)
	// DeleteAllTrades removes every stored trade (used before a full re-import).
	DeleteAllTrades(ctx context.Context) error
}

// AnalysisRun is the persisted summary of one analysis request.
type AnalysisRun struct {
	ID             string    // UUID of the run
	CreatedAt      time.Time // When the analysis was executed
	FilterSummary  string    // Human-readable description of the filter
	TradesAnalyzed int       // Trades that passed the filter
	TradesTotal    int       // Trades available before filtering
	BestRegime     string    // Regime with the highest mean PnL
	PairA          string    // First regime of the hypothesis test
	PairB          string    // Second regime of the hypothesis test
	TStat          float64   // Welch t statistic (NaN if the test could not run)
	PValue         float64   // P-value under the configured alternative (NaN if the test could not run)
	Rejected       bool      // Whether the null hypothesis was rejected
}

// RunRepository defines the interface for storing analysis run history.
type RunRepository interface {
	// SaveRun stores a run summary.
	SaveRun(ctx context.Context, run *AnalysisRun) error
	// FindRuns retrieves the most recent runs, newest first, up to a limit.
	FindRuns(ctx context.Context, limit int) ([]*AnalysisRun, error)
	// FindRunByID retrieves one run. Returns nil, nil if not found.
	FindRunByID(ctx context.Context, id string) (*AnalysisRun, error)
}
