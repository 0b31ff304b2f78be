package pipeline

import (
	"sort"
	"time"

	"github.com/fishbro/strategy-report/internal/domain"
)

// RawTrade is one extracted trade execution: a parsed calendar date and a
// signed pnl. This is the whole contract between the extraction glue and the
// pipeline; the core never sees spreadsheet rows.
type RawTrade struct {
	Date time.Time
	PnL  float64
}

// BuildStrategySeries folds raw trades into a date-sorted daily series with a
// running equity walk from startEquity. Trades sharing a calendar date are
// summed into one record. The individual non-zero-pnl trades are retained on
// the series because win rate and SQN are trade-level statistics.
//
// Zero trades yields an empty series, not an error: the caller treats it as
// "no data".
func BuildStrategySeries(name string, currency domain.Currency, startEquity float64, trades []RawTrade) domain.StrategySeries {
	series := domain.StrategySeries{
		Strategy:    name,
		Currency:    currency,
		StartEquity: startEquity,
	}
	if len(trades) == 0 {
		return series
	}

	dailyPnL := make(map[string]float64)
	for _, t := range trades {
		day := t.Date.Format(domain.DateLayout)
		dailyPnL[day] += t.PnL
		if t.PnL != 0 {
			series.Trades = append(series.Trades, domain.Trade{Date: day, PnL: t.PnL})
		}
	}

	dates := make([]string, 0, len(dailyPnL))
	for d := range dailyPnL {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	equity := startEquity
	series.Records = make([]domain.DailyRecord, 0, len(dates))
	for i, date := range dates {
		pnl := dailyPnL[date]
		equity += pnl

		day, _ := domain.ParseDate(date)
		series.Records = append(series.Records, domain.DailyRecord{
			ID:       i + 1,
			Date:     date,
			Year:     day.Year(),
			Month:    int(day.Month()),
			PnL:      pnl,
			Equity:   equity,
			Strategy: name,
			Currency: currency,
		})
	}

	return series
}
