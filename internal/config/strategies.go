package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fishbro/strategy-report/internal/domain"
)

// StrategyConfig describes one strategy's source data and display metadata.
// Files are tried in order; the first one found wins.
type StrategyConfig struct {
	Name        string          `yaml:"name"`
	Currency    domain.Currency `yaml:"currency"`
	DisplayName string          `yaml:"display_name"`
	Color       string          `yaml:"color"`
	Files       []string        `yaml:"files"`
}

// Pipeline is the single injected configuration for the whole normalization
// and aggregation pipeline: the rate table, the equity baselines, and the
// strategy list. Everything that used to drift between ad hoc report scripts
// lives here.
type Pipeline struct {
	// ReportingCurrency is the common currency every series is converted to.
	ReportingCurrency domain.Currency `yaml:"reporting_currency"`

	// Rates maps a source currency to reporting-currency units per source
	// unit. Static conversion rates; live FX is out of scope.
	Rates map[domain.Currency]float64 `yaml:"rates"`

	// SourceStartEquity seeds the raw equity walk when a backtest export does
	// not state its own account size.
	SourceStartEquity float64 `yaml:"source_start_equity"`

	// StrategyStartEquity is the common baseline every normalized strategy
	// curve is re-based to, for fair cross-strategy comparison.
	StrategyStartEquity float64 `yaml:"strategy_start_equity"`

	// PortfolioStartEquity is the combined view's baseline. Deliberately an
	// independent constant, not the sum of the per-strategy baselines.
	PortfolioStartEquity float64 `yaml:"portfolio_start_equity"`

	// TradingDaysPerYear is the Sharpe annualization factor.
	TradingDaysPerYear float64 `yaml:"trading_days_per_year"`

	// SMAWindow is the moving-average overlay period on the equity curve.
	SMAWindow int `yaml:"sma_window"`

	Strategies []StrategyConfig `yaml:"strategies"`
}

// DefaultPipeline returns the built-in strategy table and rates.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		ReportingCurrency: domain.CurrencyTWD,
		Rates: map[domain.Currency]float64{
			domain.CurrencyUSD: 32.5,
			domain.CurrencyTWD: 1,
			domain.CurrencyJPY: 0.21,
			domain.CurrencyEUR: 34.2,
		},
		SourceStartEquity:    100_000,
		StrategyStartEquity:  1_000_000,
		PortfolioStartEquity: 5_000_000,
		TradingDaysPerYear:   252,
		SMAWindow:            60,
		Strategies: []StrategyConfig{
			{
				Name:        "MNQ_DX_60",
				Currency:    domain.CurrencyUSD,
				DisplayName: "MNQ DX 60",
				Color:       "#06b6d4",
				Files: []string{
					"CME.MNQ HOT  MNQ_DX_60_BackTest 策略回測績效報告.csv",
					"CME.MNQ HOT  MNQ_DX_60 策略回測績效報告.csv",
				},
			},
			{
				Name:        "MNQ_VIX_120",
				Currency:    domain.CurrencyUSD,
				DisplayName: "MNQ VIX 120",
				Color:       "#3b82f6",
				Files: []string{
					"CME.MNQ HOT  MNQ_VIX_120_BackTest 策略回測績效報告.csv",
					"CME.MNQ HOT  MNQ_VIX_120 策略回測績效報告.csv",
				},
			},
			{
				Name:        "MXF_VIX_120",
				Currency:    domain.CurrencyTWD,
				DisplayName: "MXF VIX 120",
				Color:       "#f59e0b",
				Files: []string{
					"TWF.MXF HOT  MXF_VIX_120_BackTest 策略回測績效報告.csv",
					"TWF.MXF HOT  MXF_VIX_120 策略回測績效報告.csv",
				},
			},
			{
				Name:        "MXF_VIX_60",
				Currency:    domain.CurrencyTWD,
				DisplayName: "MXF VIX 60",
				Color:       "#8b5cf6",
				Files: []string{
					"TWF.MXF HOT  MXF_VIX_60_BackTest 策略回測績效報告.csv",
					"TWF.MXF HOT  MXF_VIX_60 策略回測績效報告.csv",
				},
			},
		},
	}
}

// LoadPipeline reads the pipeline configuration from a YAML file. An empty
// path returns the built-in defaults. Fields omitted from the file fall back
// to their defaults so a config can override just the strategy list.
func LoadPipeline(path string) (*Pipeline, error) {
	cfg := DefaultPipeline()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}

	var loaded Pipeline
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
	}

	if loaded.ReportingCurrency != "" {
		cfg.ReportingCurrency = loaded.ReportingCurrency
	}
	if len(loaded.Rates) > 0 {
		cfg.Rates = loaded.Rates
	}
	if loaded.SourceStartEquity > 0 {
		cfg.SourceStartEquity = loaded.SourceStartEquity
	}
	if loaded.StrategyStartEquity > 0 {
		cfg.StrategyStartEquity = loaded.StrategyStartEquity
	}
	if loaded.PortfolioStartEquity > 0 {
		cfg.PortfolioStartEquity = loaded.PortfolioStartEquity
	}
	if loaded.TradingDaysPerYear > 0 {
		cfg.TradingDaysPerYear = loaded.TradingDaysPerYear
	}
	if loaded.SMAWindow > 0 {
		cfg.SMAWindow = loaded.SMAWindow
	}
	if len(loaded.Strategies) > 0 {
		cfg.Strategies = loaded.Strategies
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every configured strategy has a known conversion rate.
func (p *Pipeline) Validate() error {
	if _, ok := p.Rates[p.ReportingCurrency]; !ok {
		return fmt.Errorf("no rate for reporting currency %s", p.ReportingCurrency)
	}
	for _, s := range p.Strategies {
		if s.Name == "" {
			return fmt.Errorf("strategy with empty name in config")
		}
		if _, ok := p.Rates[s.Currency]; !ok {
			return fmt.Errorf("strategy %s: no rate for currency %s", s.Name, s.Currency)
		}
	}
	return nil
}

// Rate returns the conversion rate for a source currency.
func (p *Pipeline) Rate(c domain.Currency) (float64, bool) {
	r, ok := p.Rates[c]
	return r, ok
}

// Strategy looks up a strategy by name.
func (p *Pipeline) Strategy(name string) (StrategyConfig, bool) {
	for _, s := range p.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return StrategyConfig{}, false
}

// RatesAsStrings returns the rate table keyed by plain strings, for the
// artifact metadata block.
func (p *Pipeline) RatesAsStrings() map[string]float64 {
	out := make(map[string]float64, len(p.Rates))
	for c, r := range p.Rates {
		out[string(c)] = r
	}
	return out
}
