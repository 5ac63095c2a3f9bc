package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver

	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

// timeLayout is RFC 3339 with a fixed-width fraction so stored strings sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Repository implements the ports.TradeRepository and ports.RunRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository: %w", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/sentiment_edge.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %v: %w", dbPath, err, ports.ErrDBConnection)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %v: %w", dbPath, err, ports.ErrDBConnection)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// One writer at a time; the driver serializes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// Timestamps are stored twice: ts keeps the original offset so calendar days survive
// a round trip, ts_unix orders rows.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account TEXT NOT NULL DEFAULT '',
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		ts TEXT NOT NULL,
		ts_unix INTEGER NOT NULL,
		pnl REAL NOT NULL,
		size REAL NOT NULL,
		sentiment REAL NOT NULL CHECK (sentiment >= 0 AND sentiment <= 100)
	);

	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		filter_summary TEXT NOT NULL,
		trades_analyzed INTEGER NOT NULL,
		trades_total INTEGER NOT NULL,
		best_regime TEXT NOT NULL DEFAULT '',
		pair_a TEXT NOT NULL,
		pair_b TEXT NOT NULL,
		t_stat REAL NULL,
		p_value REAL NULL,
		rejected INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_ts ON trades (symbol, ts_unix);
	CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs (created_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %v: %w", err, ports.ErrQueryFailed)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Debug(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TradeRepository Implementation ---

// CreateTrades inserts a batch of trades in one transaction. Either all rows are stored
// or none. IDs assigned by the database are not written back to the input.
func (r *Repository) CreateTrades(ctx context.Context, trades []domain.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}
	const query = `
	INSERT INTO trades (account, symbol, side, ts, ts_unix, pnl, size, sentiment)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin trade import: %v: %w", err, ports.ErrDBConnection)
	}
	defer tx.Rollback() // no-op after Commit

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare trade insert: %v: %w", err, ports.ErrQueryFailed)
	}
	defer stmt.Close()

	for i, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			t.Account, t.Symbol, string(t.Side), t.Timestamp.Format(timeLayout), t.Timestamp.UnixNano(),
			t.PnL, t.Size, t.Sentiment); err != nil {
			return 0, fmt.Errorf("failed to insert trade %d (%s): %v: %w", i, t.Symbol, err, ports.ErrQueryFailed)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit trade import: %v: %w", err, ports.ErrQueryFailed)
	}

	r.logger.Debug(ctx, "Trades stored", map[string]interface{}{"count": len(trades)})
	return len(trades), nil
}

// FindTrades retrieves trades matching the filter, ordered by timestamp ascending.
// Symbol and side restrictions are pushed into SQL; day bounds are applied in Go so
// that days are evaluated in each trade's own offset.
func (r *Repository) FindTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	query := `
	SELECT id, account, symbol, side, ts, pnl, size, sentiment
	FROM trades`

	var where []string
	var args []interface{}
	if len(filter.Symbols) > 0 {
		where = append(where, "symbol IN ("+placeholders(len(filter.Symbols))+")")
		for _, s := range filter.Symbols {
			args = append(args, s)
		}
	}
	if len(filter.Sides) > 0 {
		where = append(where, "side IN ("+placeholders(len(filter.Sides))+")")
		for _, s := range filter.Sides {
			args = append(args, string(s))
		}
	}
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY ts_unix ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %v: %w", err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindTrades: %v: %w", err, ports.ErrQueryFailed)
		}
		if filter.Match(t) {
			trades = append(trades, t)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return trades, nil
}

// CountTrades counts all stored trades.
func (r *Repository) CountTrades(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %v: %w", err, ports.ErrQueryFailed)
	}
	return count, nil
}

// DeleteAllTrades removes every stored trade.
func (r *Repository) DeleteAllTrades(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trades`)
	if err != nil {
		return fmt.Errorf("failed to delete trades: %v: %w", err, ports.ErrQueryFailed)
	}
	n, _ := res.RowsAffected()
	r.logger.Info(ctx, "Stored trades deleted", map[string]interface{}{"count": n})
	return nil
}

// --- RunRepository Implementation ---

// SaveRun stores a run summary. A run ID can only be stored once.
func (r *Repository) SaveRun(ctx context.Context, run *ports.AnalysisRun) error {
	const query = `
	INSERT INTO analysis_runs (id, created_at, filter_summary, trades_analyzed, trades_total,
	                           best_regime, pair_a, pair_b, t_stat, p_value, rejected)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.FilterSummary, run.TradesAnalyzed, run.TradesTotal,
		run.BestRegime, run.PairA, run.PairB, nullFloat(run.TStat), nullFloat(run.PValue), run.Rejected)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("analysis run %s already stored: %w", run.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert analysis run %s: %v: %w", run.ID, err, ports.ErrQueryFailed)
	}
	r.logger.Debug(ctx, "Analysis run stored", map[string]interface{}{"runID": run.ID})
	return nil
}

// FindRuns retrieves the most recent runs, newest first. A non-positive limit returns all runs.
func (r *Repository) FindRuns(ctx context.Context, limit int) ([]*ports.AnalysisRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	const query = `
	SELECT id, created_at, filter_summary, trades_analyzed, trades_total,
	       best_regime, pair_a, pair_b, t_stat, p_value, rejected
	FROM analysis_runs
	ORDER BY created_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %v: %w", err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	runs := make([]*ports.AnalysisRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis run during FindRuns: %v: %w", err, ports.ErrQueryFailed)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis run rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return runs, nil
}

// FindRunByID retrieves one run, or nil if it does not exist.
func (r *Repository) FindRunByID(ctx context.Context, id string) (*ports.AnalysisRun, error) {
	const query = `
	SELECT id, created_at, filter_summary, trades_analyzed, trades_total,
	       best_regime, pair_a, pair_b, t_stat, p_value, rejected
	FROM analysis_runs
	WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Analysis run not found by ID", map[string]interface{}{"runID": id})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query analysis run %s: %v: %w", id, err, ports.ErrQueryFailed)
	}
	return run, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (domain.Trade, error) {
	var t domain.Trade
	var side, ts string
	if err := s.Scan(&t.ID, &t.Account, &t.Symbol, &side, &ts, &t.PnL, &t.Size, &t.Sentiment); err != nil {
		return domain.Trade{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid timestamp %q for trade %d: %w", ts, t.ID, err)
	}
	t.Timestamp = parsed
	t.Side = domain.OrderSide(side)
	return t, nil
}

// scanRun scans a row into a ports.AnalysisRun struct.
func scanRun(s scanner) (*ports.AnalysisRun, error) {
	run := &ports.AnalysisRun{}
	var createdAt string
	var tStat, pValue sql.NullFloat64
	err := s.Scan(&run.ID, &createdAt, &run.FilterSummary, &run.TradesAnalyzed, &run.TradesTotal,
		&run.BestRegime, &run.PairA, &run.PairB, &tStat, &pValue, &run.Rejected)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q for run %s: %w", createdAt, run.ID, err)
	}
	run.TStat = fromNullFloat(tStat)
	run.PValue = fromNullFloat(pValue)
	return run, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// nullFloat maps NaN, which SQLite cannot store, to NULL. Infinities are stored as is.
func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fromNullFloat(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
