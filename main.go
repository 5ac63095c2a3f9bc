package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sentimentEdge/config"
	"sentimentEdge/internal/adapters/logger"
	"sentimentEdge/internal/adapters/sqlite"
	"sentimentEdge/internal/app"
	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/observability"
	"sentimentEdge/internal/ports"
)

func main() {
	from := flag.String("from", "", "first trade day to include (YYYY-MM-DD)")
	to := flag.String("to", "", "last trade day to include (YYYY-MM-DD)")
	symbols := flag.String("symbols", "", "comma-separated symbols to include (default all)")
	sides := flag.String("sides", "", "comma-separated sides to include: BUY,SELL (default all)")
	csvOut := flag.String("csv", "", "also export the regime breakdown to this CSV file")
	flag.Parse()

	os.Exit(run(*from, *to, *symbols, *sides, *csvOut))
}

// run returns the process exit code: 0 on success, 2 when no trades match, 1 otherwise.
func run(from, to, symbols, sides, csvOut string) int {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	appLogger.Debug(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	filter, err := parseFilter(from, to, symbols, sides, cfg.Location)
	if err != nil {
		log.Fatalf("FATAL: Invalid filter: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Application Service
	metrics := observability.NewMetrics()
	service, err := app.NewAnalysisService(cfg, appLogger, repo, repo, metrics)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize analysis service")
		return 1
	}

	// 5. Run the analysis
	report, runErr := service.Run(ctx, filter)
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			appLogger.Error(ctx, err, "Failed to write metrics textfile")
		}
	}
	if runErr != nil {
		if errors.Is(runErr, ports.ErrInsufficientData) {
			appLogger.Warn(ctx, "Nothing to analyze; import trades with cmd/import_trades first", map[string]interface{}{"reason": runErr.Error()})
			return 2
		}
		appLogger.Error(ctx, runErr, "Analysis failed")
		return 1
	}

	if err := report.Render(os.Stdout); err != nil {
		appLogger.Error(ctx, err, "Failed to render report")
		return 1
	}

	if csvOut != "" {
		if err := writeCSV(report, csvOut); err != nil {
			appLogger.Error(ctx, err, "Failed to export report", map[string]interface{}{"path": csvOut})
			return 1
		}
		appLogger.Info(ctx, "Report exported", map[string]interface{}{"path": csvOut})
	}
	return 0
}

func parseFilter(from, to, symbols, sides string, loc *time.Location) (domain.TradeFilter, error) {
	var f domain.TradeFilter
	var err error
	if from != "" {
		if f.From, err = time.ParseInLocation("2006-01-02", from, loc); err != nil {
			return f, fmt.Errorf("invalid -from %q: %w", from, err)
		}
	}
	if to != "" {
		if f.To, err = time.ParseInLocation("2006-01-02", to, loc); err != nil {
			return f, fmt.Errorf("invalid -to %q: %w", to, err)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("-to %s is before -from %s", to, from)
	}
	f.Symbols = splitList(symbols)
	for _, s := range splitList(sides) {
		side := domain.ParseOrderSide(s)
		if side != domain.Buy && side != domain.Sell {
			return f, fmt.Errorf("unknown side %q", s)
		}
		f.Sides = append(f.Sides, side)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeCSV(report *app.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
