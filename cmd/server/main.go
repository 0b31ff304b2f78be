package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fishbro/strategy-report/internal/config"
	"github.com/fishbro/strategy-report/internal/database"
	"github.com/fishbro/strategy-report/internal/modules/extraction"
	"github.com/fishbro/strategy-report/internal/modules/pipeline"
	"github.com/fishbro/strategy-report/internal/modules/report"
	"github.com/fishbro/strategy-report/internal/scheduler"
	"github.com/fishbro/strategy-report/internal/server"
	"github.com/fishbro/strategy-report/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Strategy Report")

	// Load pipeline configuration (rates, baselines, strategy table)
	pipeCfg, err := config.LoadPipeline(cfg.StrategiesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load pipeline configuration")
	}

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	repo := report.NewRepository(db, log)
	if err := repo.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	// Wire the pipeline and report services
	source := extraction.NewCSVSource([]string{cfg.DataDir}, log)
	pipe := pipeline.NewService(pipeCfg, source, log)
	reportSvc := report.NewService(pipeCfg, pipe, repo, cfg.ArtifactPath, log)

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, reportSvc, db, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Report:  reportSvc,
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, reportSvc *report.Service, db *database.DB, cfg *config.Config, log zerolog.Logger) error {
	if cfg.PreprocessSchedule != "" {
		if err := sched.AddJob(cfg.PreprocessSchedule, scheduler.NewPreprocessJob(reportSvc, log)); err != nil {
			return err
		}
	}

	return sched.AddJob("@every 6h", scheduler.NewIntegrityCheckJob(db, log))
}
