package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/fishbro/strategy-report/internal/artifact"
	"github.com/fishbro/strategy-report/internal/config"
	"github.com/fishbro/strategy-report/internal/domain"
)

// Source supplies the extracted trades for one configured strategy, plus the
// count of malformed rows it had to skip. A missing source reports
// os.ErrNotExist; the pipeline then proceeds without that strategy.
type Source interface {
	Load(cfg config.StrategyConfig) ([]RawTrade, int, error)
}

// Summary is the operator-facing account of a pipeline run.
type Summary struct {
	Expected    int `json:"expected"`
	Loaded      int `json:"loaded"`
	SkippedRows int `json:"skippedRows"`
	TotalDates  int `json:"totalDates"`
	TotalTrades int `json:"totalTrades"`
}

// Result holds everything one pipeline run produced. Series are normalized
// to the reporting currency, in configuration order, missing sources absent.
type Result struct {
	Series    []domain.StrategySeries
	Portfolio domain.PortfolioSeries
	Artifact  *artifact.Artifact
	Summary   Summary
}

// Service is the one canonical pipeline: extraction output in, verified
// artifact out. All rates, baselines, and the strategy list come from the
// injected configuration; nothing here is per-strategy copy-paste.
type Service struct {
	cfg    *config.Pipeline
	source Source
	log    zerolog.Logger
}

// NewService creates a pipeline service.
func NewService(cfg *config.Pipeline, source Source, log zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		source: source,
		log:    log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the full pipeline once: load, daily-aggregate, normalize,
// merge, verify. It fails only when no usable data was produced at all or
// when a transform broke the equity invariant; individual missing strategies
// are logged and skipped.
func (s *Service) Run(now time.Time) (*Result, error) {
	result := &Result{
		Summary: Summary{Expected: len(s.cfg.Strategies)},
	}

	for _, strat := range s.cfg.Strategies {
		raw, skipped, err := s.source.Load(strat)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				s.log.Warn().Str("strategy", strat.Name).Msg("No source data, skipping strategy")
			} else {
				s.log.Error().Err(err).Str("strategy", strat.Name).Msg("Failed to load strategy, skipping")
			}
			continue
		}
		result.Summary.Loaded++
		result.Summary.SkippedRows += skipped

		series := BuildStrategySeries(strat.Name, strat.Currency, s.cfg.SourceStartEquity, raw)

		rate, ok := s.cfg.Rate(strat.Currency)
		if !ok {
			// Validate() rejects this config at load time; re-check anyway.
			return nil, fmt.Errorf("no conversion rate for %s (%s)", strat.Name, strat.Currency)
		}
		normalized := Normalize(series, rate, s.cfg.StrategyStartEquity, s.cfg.ReportingCurrency)

		if err := normalized.ValidateContinuity(); err != nil {
			return nil, fmt.Errorf("equity invariant violated: %w", err)
		}

		result.Summary.TotalTrades += len(normalized.Trades)
		result.Series = append(result.Series, normalized)

		s.log.Info().
			Str("strategy", strat.Name).
			Int("days", len(normalized.Records)).
			Int("trades", len(normalized.Trades)).
			Float64("rate", rate).
			Msg("Strategy normalized")
	}

	if result.Summary.Loaded < result.Summary.Expected {
		s.log.Warn().
			Int("expected", result.Summary.Expected).
			Int("loaded", result.Summary.Loaded).
			Msg("Some configured strategies have no data")
	}

	result.Portfolio = BuildPortfolio(result.Series, s.cfg.PortfolioStartEquity)
	result.Summary.TotalDates = len(result.Portfolio.Rows)

	if result.Summary.TotalDates == 0 {
		return nil, fmt.Errorf("no usable data: %d of %d strategies loaded, 0 trading days",
			result.Summary.Loaded, result.Summary.Expected)
	}

	if err := result.Portfolio.ValidateContinuity(); err != nil {
		return nil, fmt.Errorf("equity invariant violated: %w", err)
	}

	result.Artifact = artifact.Build(result.Series, result.Portfolio, s.cfg.RatesAsStrings(), now)
	if err := artifact.Verify(result.Artifact, s.cfg.ReportingCurrency); err != nil {
		return nil, fmt.Errorf("artifact verification failed: %w", err)
	}

	return result, nil
}
