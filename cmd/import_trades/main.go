package main

import (
	"context"
	"flag"
	"log"

	"sentimentEdge/config"
	"sentimentEdge/internal/adapters/logger"
	"sentimentEdge/internal/adapters/sqlite"
	"sentimentEdge/internal/analytics"
	"sentimentEdge/internal/app"
	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/observability"
	"sentimentEdge/internal/utils"
)

func main() {
	replace := flag.Bool("replace", true, "delete previously imported trades first")
	export := flag.String("export", "", "also write the joined trades with their regime to this CSV file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := context.Background()

	// 3. Read and join the exports
	sentiment, err := utils.ReadSentimentFromCSV(cfg.SentimentCSV)
	if err != nil {
		appLogger.Error(ctx, err, "Error reading sentiment CSV")
		log.Fatalf("Error reading sentiment CSV: %v", err)
	}
	appLogger.Info(ctx, "Loaded sentiment index", map[string]interface{}{"days": len(sentiment), "path": cfg.SentimentCSV})

	imported, err := utils.ReadTradesFromCSV(cfg.TradesCSV, sentiment, cfg.Location)
	if err != nil {
		appLogger.Error(ctx, err, "Error reading trades CSV")
		log.Fatalf("Error reading trades CSV: %v", err)
	}
	appLogger.Info(ctx, "Joined trades with sentiment", map[string]interface{}{
		"rows":    imported.Rows,
		"joined":  len(imported.Trades),
		"skipped": imported.Skipped,
	})
	if imported.Skipped > 0 {
		appLogger.Warn(ctx, "Trades without a sentiment value for their day were dropped", map[string]interface{}{"skipped": imported.Skipped})
	}

	if *export != "" {
		labels := make([]domain.RegimeLabel, len(imported.Trades))
		for i, t := range imported.Trades {
			if labels[i], err = analytics.Assign(cfg.Regimes, t.Sentiment); err != nil {
				log.Fatalf("Error labelling trade %d: %v", i, err)
			}
		}
		if err := utils.WriteTradesToCSV(imported.Trades, labels, *export); err != nil {
			appLogger.Error(ctx, err, "Error writing CSV")
			log.Fatalf("Error writing CSV: %v", err)
		}
		appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": *export})
	}

	// 4. Store
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	metrics := observability.NewMetrics()
	service, err := app.NewAnalysisService(cfg, appLogger, repo, repo, metrics)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize analysis service: %v", err)
	}

	stored, err := service.Import(ctx, imported.Trades, *replace)
	if err != nil {
		repo.Close()
		log.Fatalf("Error storing trades: %v", err)
	}
	metrics.RecordImport(stored, imported.Skipped)
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			appLogger.Error(ctx, err, "Failed to write metrics textfile")
		}
	}
	appLogger.Info(ctx, "Import finished", map[string]interface{}{"stored": stored, "db": cfg.DBPath})
}
