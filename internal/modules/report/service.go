package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fishbro/strategy-report/internal/config"
	"github.com/fishbro/strategy-report/internal/domain"
	"github.com/fishbro/strategy-report/internal/modules/analytics"
	"github.com/fishbro/strategy-report/internal/modules/pipeline"
	"github.com/fishbro/strategy-report/internal/modules/stats"
)

// Service ties the pipeline, the snapshot store, and the stat calculator
// together. Refresh reruns the pipeline and replaces everything downstream;
// the read methods serve from the stored snapshot, memoizing computed stat
// bundles until the next refresh.
type Service struct {
	cfg          *config.Pipeline
	pipeline     *pipeline.Service
	repo         *Repository
	artifactPath string
	calc         stats.Calculator
	log          zerolog.Logger

	mu      sync.RWMutex
	bundles map[string]stats.Bundle
}

// PortfolioView is the reserved stats identifier for the merged portfolio.
const PortfolioView = "portfolio"

// NewService creates the report service.
func NewService(cfg *config.Pipeline, pipe *pipeline.Service, repo *Repository, artifactPath string, log zerolog.Logger) *Service {
	calc := stats.NewCalculator()
	if cfg.TradingDaysPerYear > 0 {
		calc.TradingDaysPerYear = cfg.TradingDaysPerYear
	}
	if cfg.SMAWindow > 0 {
		calc.SMAWindow = cfg.SMAWindow
	}

	return &Service{
		cfg:          cfg,
		pipeline:     pipe,
		repo:         repo,
		artifactPath: artifactPath,
		calc:         calc,
		log:          log.With().Str("component", "report").Logger(),
		bundles:      make(map[string]stats.Bundle),
	}
}

// Refresh reruns the full pipeline, stores the resulting snapshot, writes the
// dashboard artifact, and drops all memoized bundles. A failed run leaves the
// previous snapshot and artifact untouched.
func (s *Service) Refresh(now time.Time) (*pipeline.Result, error) {
	result, err := s.pipeline.Run(now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceAll(result.Series, result.Portfolio); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	if err := result.Artifact.Write(s.artifactPath); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}

	s.mu.Lock()
	s.bundles = make(map[string]stats.Bundle)
	s.mu.Unlock()

	s.log.Info().
		Int("strategies", result.Summary.Loaded).
		Int("dates", result.Summary.TotalDates).
		Str("artifact", s.artifactPath).
		Msg("Report refreshed")

	return result, nil
}

// ArtifactPath returns the location of the written dashboard artifact.
func (s *Service) ArtifactPath() string {
	return s.artifactPath
}

// Bundle returns the stat bundle for one view, either a strategy name or
// PortfolioView. Bundles are cached until the next Refresh; stored series are
// immutable between refreshes, so a cached bundle never goes stale early.
func (s *Service) Bundle(view string) (stats.Bundle, error) {
	s.mu.RLock()
	b, ok := s.bundles[view]
	s.mu.RUnlock()
	if ok {
		return b, nil
	}

	b, err := s.computeBundle(view)
	if err != nil {
		return stats.Bundle{}, err
	}

	s.mu.Lock()
	s.bundles[view] = b
	s.mu.Unlock()
	return b, nil
}

func (s *Service) computeBundle(view string) (stats.Bundle, error) {
	if view == PortfolioView {
		portfolio, err := s.repo.LoadPortfolio()
		if err != nil {
			return stats.Bundle{}, err
		}
		trades, err := s.allTrades()
		if err != nil {
			return stats.Bundle{}, err
		}
		records := portfolio.DailyRecords(s.cfg.ReportingCurrency)
		return s.calc.Compute(records, trades, portfolio.StartEquity), nil
	}

	series, err := s.repo.LoadStrategy(view)
	if err != nil {
		return stats.Bundle{}, err
	}
	return s.calc.Compute(series.Records, series.Trades, series.StartEquity), nil
}

// allTrades concatenates every strategy's trades, in configuration order.
// The portfolio's trade metrics treat the book as one account.
func (s *Service) allTrades() ([]domain.Trade, error) {
	series, err := s.repo.LoadSeries()
	if err != nil {
		return nil, err
	}
	var trades []domain.Trade
	for _, sr := range series {
		trades = append(trades, sr.Trades...)
	}
	return trades, nil
}

// Correlation returns the pairwise correlation matrix over the stored
// portfolio.
func (s *Service) Correlation() (analytics.Matrix, error) {
	portfolio, err := s.repo.LoadPortfolio()
	if err != nil {
		return analytics.Matrix{}, err
	}
	return analytics.CorrelationMatrix(portfolio), nil
}

// Contributions returns the per-strategy total pnl breakdown over the stored
// portfolio.
func (s *Service) Contributions() ([]analytics.Contribution, error) {
	portfolio, err := s.repo.LoadPortfolio()
	if err != nil {
		return nil, err
	}
	return analytics.ContributionBreakdown(portfolio), nil
}

// Strategies lists the configured strategies with their display metadata.
func (s *Service) Strategies() []config.StrategyConfig {
	return s.cfg.Strategies
}
