// Package artifact defines the persisted strategies.json document: the sole
// interface between the preprocessing pipeline and the dashboard that renders
// it. The HTTP layer serves this document verbatim.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fishbro/strategy-report/internal/domain"
)

// Row is one rawPortfolioData entry. It serializes the per-strategy
// contributions as flat pnl_<strategy> keys, the shape the dashboard's
// correlation and contribution views read. A pnlTWD_<strategy> alias is
// emitted alongside each contribution for older dashboard builds that still
// read the pre-normalization key.
type Row struct {
	Date          string
	Year          int
	Month         int
	PnL           float64
	Equity        float64
	Contributions map[string]float64
}

// MarshalJSON flattens the contribution map into pnl_<strategy> keys.
func (r Row) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Contributions)*2+5)
	flat["date"] = r.Date
	flat["year"] = r.Year
	flat["month"] = r.Month
	flat["pnl"] = r.PnL
	flat["equity"] = r.Equity
	for name, pnl := range r.Contributions {
		flat["pnl_"+name] = pnl
		flat["pnlTWD_"+name] = pnl
	}
	return json.Marshal(flat)
}

// DateRange is the first and last calendar date covered by the artifact.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Metadata describes a generated artifact.
type Metadata struct {
	GeneratedAt     time.Time          `json:"generatedAt"`
	TotalStrategies int                `json:"totalStrategies"`
	TotalDates      int                `json:"totalDates"`
	DateRange       DateRange          `json:"dateRange"`
	ExchangeRate    map[string]float64 `json:"exchangeRate"`
}

// Artifact is the full published document.
type Artifact struct {
	Strategies       map[string][]domain.DailyRecord `json:"strategies"`
	Trades           map[string][]domain.Trade       `json:"trades"`
	RawPortfolioData []Row                           `json:"rawPortfolioData"`
	Metadata         Metadata                        `json:"metadata"`
}

// Build assembles an artifact from normalized strategy series and the merged
// portfolio. A loaded strategy with zero trades keeps an empty slice in the
// maps so the dashboard can show an explicit "no data" indicator; strategies
// whose source was missing entirely are not in the input and stay absent.
func Build(series []domain.StrategySeries, portfolio domain.PortfolioSeries, rates map[string]float64, generatedAt time.Time) *Artifact {
	a := &Artifact{
		Strategies: make(map[string][]domain.DailyRecord, len(series)),
		Trades:     make(map[string][]domain.Trade, len(series)),
	}

	for _, s := range series {
		records := s.Records
		if records == nil {
			records = []domain.DailyRecord{}
		}
		trades := s.Trades
		if trades == nil {
			trades = []domain.Trade{}
		}
		a.Strategies[s.Strategy] = records
		a.Trades[s.Strategy] = trades
	}

	a.RawPortfolioData = make([]Row, len(portfolio.Rows))
	for i, row := range portfolio.Rows {
		a.RawPortfolioData[i] = Row{
			Date:          row.Date,
			Year:          row.Year,
			Month:         row.Month,
			PnL:           row.PnL,
			Equity:        row.Equity,
			Contributions: row.Contributions,
		}
	}

	a.Metadata = Metadata{
		GeneratedAt:     generatedAt,
		TotalStrategies: len(a.Strategies),
		TotalDates:      len(portfolio.Rows),
		ExchangeRate:    rates,
	}
	if len(portfolio.Rows) > 0 {
		a.Metadata.DateRange = DateRange{
			Start: portfolio.Rows[0].Date,
			End:   portfolio.Rows[len(portfolio.Rows)-1].Date,
		}
	}

	return a
}

// Write publishes the artifact atomically: it marshals to a temp file in the
// destination directory and renames it into place, so a failed run never
// leaves a half-written document where a previously valid one stood.
func (a *Artifact) Write(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".strategies-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish artifact: %w", err)
	}
	return nil
}
