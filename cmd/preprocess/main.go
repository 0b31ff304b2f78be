// Command preprocess runs the normalization pipeline once and exits: load
// every configured backtest export, normalize, merge, store the snapshot,
// and write the dashboard artifact. Exit code is non-zero only when no
// usable data was produced at all; individual missing strategies are
// reported and skipped.
package main

import (
	"os"
	"time"

	"github.com/fishbro/strategy-report/internal/config"
	"github.com/fishbro/strategy-report/internal/database"
	"github.com/fishbro/strategy-report/internal/modules/extraction"
	"github.com/fishbro/strategy-report/internal/modules/pipeline"
	"github.com/fishbro/strategy-report/internal/modules/report"
	"github.com/fishbro/strategy-report/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	pipeCfg, err := config.LoadPipeline(cfg.StrategiesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load pipeline configuration")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	repo := report.NewRepository(db, log)
	if err := repo.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	source := extraction.NewCSVSource([]string{cfg.DataDir}, log)
	pipe := pipeline.NewService(pipeCfg, source, log)
	svc := report.NewService(pipeCfg, pipe, repo, cfg.ArtifactPath, log)

	start := time.Now()
	result, err := svc.Refresh(start)
	if err != nil {
		log.Error().Err(err).Msg("Preprocess failed")
		os.Exit(1)
	}

	log.Info().
		Int("expected", result.Summary.Expected).
		Int("loaded", result.Summary.Loaded).
		Int("skipped_rows", result.Summary.SkippedRows).
		Int("dates", result.Summary.TotalDates).
		Int("trades", result.Summary.TotalTrades).
		Str("artifact", cfg.ArtifactPath).
		Dur("duration", time.Since(start)).
		Msg("Preprocess completed")
}
