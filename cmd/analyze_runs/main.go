package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"text/tabwriter"

	"sentimentEdge/config"
	"sentimentEdge/internal/adapters/logger"
	"sentimentEdge/internal/adapters/sqlite"
	"sentimentEdge/internal/app"
	"sentimentEdge/internal/ports"
)

func main() {
	limit := flag.Int("limit", 0, "number of runs to list (default RUN_HISTORY_LIMIT)")
	id := flag.String("id", "", "show a single run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := context.Background()

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	service, err := app.NewAnalysisService(cfg, appLogger, repo, repo, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize analysis service: %v", err)
	}

	var runs []*ports.AnalysisRun
	if *id != "" {
		run, err := service.RunByID(ctx, *id)
		if err != nil {
			appLogger.Error(ctx, err, "Error loading run", map[string]interface{}{"runID": *id})
			return
		}
		runs = append(runs, run)
	} else {
		if runs, err = service.History(ctx, *limit); err != nil {
			appLogger.Error(ctx, err, "Error loading run history")
			return
		}
	}

	if len(runs) == 0 {
		log.Println("No analysis runs stored. Run the analyzer first.")
		return
	}

	// Create a tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Run\tCreated\tFilter\tTrades\tCoverage\tBest\tPair\tt\tp\tH0\t")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s vs %s\t%s\t%s\t%s\t\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.FilterSummary,
			r.TradesAnalyzed,
			coverage(r),
			r.BestRegime,
			r.PairA, r.PairB,
			optional(r.TStat, "%.3f"),
			optional(r.PValue, "%.4g"),
			verdict(r),
		)
	}
	w.Flush()
}

func coverage(r *ports.AnalysisRun) string {
	if r.TradesTotal == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(r.TradesAnalyzed)/float64(r.TradesTotal))
}

func optional(f float64, format string) string {
	if math.IsNaN(f) {
		return "-"
	}
	return fmt.Sprintf(format, f)
}

func verdict(r *ports.AnalysisRun) string {
	switch {
	case math.IsNaN(r.PValue):
		return "not tested"
	case r.Rejected:
		return "rejected"
	default:
		return "kept"
	}
}
