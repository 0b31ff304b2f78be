package domain

import (
	"fmt"
	"math"
	"time"
)

// Currency represents a currency code
type Currency string

const (
	CurrencyTWD Currency = "TWD"
	CurrencyUSD Currency = "USD"
	CurrencyJPY Currency = "JPY"
	CurrencyEUR Currency = "EUR"
)

// EquityTolerance is the floating tolerance used when checking that
// equity[i] == equity[i-1] + pnl[i] across a series.
const EquityTolerance = 0.01

// DateLayout is the ISO calendar date format used throughout the pipeline.
const DateLayout = "2006-01-02"

// DailyRecord is one calendar day of a strategy's equity curve.
// Equity is the cumulative account value at end of day.
type DailyRecord struct {
	ID       int      `json:"id"`
	Date     string   `json:"date"` // ISO calendar date, YYYY-MM-DD
	Year     int      `json:"year"`
	Month    int      `json:"month"`
	PnL      float64  `json:"pnl"`
	Equity   float64  `json:"equity"`
	Strategy string   `json:"strategy"`
	Currency Currency `json:"currency"`
}

// Trade is one discrete trade execution. Trades are kept at their original
// granularity because win rate and SQN must be computed per trade, not per
// day: a day netting +80 from three wins and two losses is one daily record
// but five trades.
type Trade struct {
	Date string  `json:"date"`
	PnL  float64 `json:"pnl"`
}

// StrategySeries owns one strategy's daily records and its underlying trades.
// Records are date-ascending with one record per date. StartEquity is the
// account value immediately before the first record's pnl was applied.
type StrategySeries struct {
	Strategy    string
	Currency    Currency
	StartEquity float64
	Records     []DailyRecord
	Trades      []Trade
}

// Empty reports whether the series has no daily records.
func (s StrategySeries) Empty() bool {
	return len(s.Records) == 0
}

// EndEquity returns the equity of the last record, or StartEquity for an
// empty series.
func (s StrategySeries) EndEquity() float64 {
	if len(s.Records) == 0 {
		return s.StartEquity
	}
	return s.Records[len(s.Records)-1].Equity
}

// ValidateContinuity checks the equity-curve invariant: every record's equity
// equals the previous equity plus the day's pnl, within EquityTolerance.
// A violation means a transform corrupted the curve and is a programming
// error, not bad input.
func (s StrategySeries) ValidateContinuity() error {
	prev := s.StartEquity
	for i, r := range s.Records {
		expected := prev + r.PnL
		if math.Abs(expected-r.Equity) > EquityTolerance {
			return fmt.Errorf("strategy %s: equity discontinuity at %s (record %d): have %.4f, want %.4f",
				s.Strategy, r.Date, i, r.Equity, expected)
		}
		prev = r.Equity
	}
	return nil
}

// PortfolioRow is one calendar day of the combined portfolio: the per-strategy
// pnl contributions for that date, their sum, and the cumulative equity.
// A strategy with no record on the date is absent from Contributions and
// contributes zero.
type PortfolioRow struct {
	Date          string
	Year          int
	Month         int
	Contributions map[string]float64
	PnL           float64
	Equity        float64
}

// PortfolioSeries is the date-aligned merge of N normalized strategy series.
// It is derived data: re-derivable at any time from the strategy series plus
// the starting-equity baseline.
type PortfolioSeries struct {
	Strategies  []string // constituent ids, in configuration order
	StartEquity float64
	Rows        []PortfolioRow
}

// Empty reports whether the portfolio has no rows.
func (p PortfolioSeries) Empty() bool {
	return len(p.Rows) == 0
}

// ContributionVector returns the daily pnl contributions of one strategy,
// aligned to the portfolio's date axis with zeros for absent dates.
func (p PortfolioSeries) ContributionVector(strategy string) []float64 {
	out := make([]float64, len(p.Rows))
	for i, row := range p.Rows {
		out[i] = row.Contributions[strategy]
	}
	return out
}

// DailyRecords renders the portfolio as a plain daily series so the stats
// engine can treat strategy and portfolio views uniformly.
func (p PortfolioSeries) DailyRecords(currency Currency) []DailyRecord {
	out := make([]DailyRecord, len(p.Rows))
	for i, row := range p.Rows {
		out[i] = DailyRecord{
			ID:       i + 1,
			Date:     row.Date,
			Year:     row.Year,
			Month:    row.Month,
			PnL:      row.PnL,
			Equity:   row.Equity,
			Strategy: "Portfolio",
			Currency: currency,
		}
	}
	return out
}

// ValidateContinuity checks the same equity invariant as StrategySeries, with
// the row's summed pnl in place of a single strategy's pnl. It also checks
// that each row's pnl equals the sum of its contributions.
func (p PortfolioSeries) ValidateContinuity() error {
	prev := p.StartEquity
	for i, row := range p.Rows {
		sum := 0.0
		for _, v := range row.Contributions {
			sum += v
		}
		if math.Abs(sum-row.PnL) > EquityTolerance {
			return fmt.Errorf("portfolio: pnl mismatch at %s (row %d): have %.4f, contributions sum %.4f",
				row.Date, i, row.PnL, sum)
		}
		expected := prev + row.PnL
		if math.Abs(expected-row.Equity) > EquityTolerance {
			return fmt.Errorf("portfolio: equity discontinuity at %s (row %d): have %.4f, want %.4f",
				row.Date, i, row.Equity, expected)
		}
		prev = row.Equity
	}
	return nil
}

// ParseDate parses an ISO calendar date as used in Date fields.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
