package pipeline

import (
	"github.com/fishbro/strategy-report/internal/domain"
)

// Normalize converts a strategy series from its source currency into the
// reporting currency and re-bases the equity curve so it starts at
// targetStartEquity.
//
// Every pnl is scaled by rate. Equity is scaled by rate and then shifted by a
// constant offset computed once from the first record:
//
//	offset = targetStartEquity - (firstEquity - firstPnL) * rate
//
// Scaling alone would preserve relative growth but leave each strategy at its
// own nominal starting point; the offset moves all curves onto the shared
// baseline while leaving every pnl delta intact, which is what makes
// cross-strategy comparison and portfolio summing fair. Trades are deltas,
// not levels, so they are scaled but never offset.
//
// The result is a new series; the input is not mutated. An empty series
// converts to an empty series with StartEquity = targetStartEquity.
func Normalize(s domain.StrategySeries, rate, targetStartEquity float64, reporting domain.Currency) domain.StrategySeries {
	out := domain.StrategySeries{
		Strategy:    s.Strategy,
		Currency:    reporting,
		StartEquity: targetStartEquity,
	}
	if len(s.Records) == 0 {
		return out
	}

	first := s.Records[0]
	offset := targetStartEquity - (first.Equity-first.PnL)*rate

	out.Records = make([]domain.DailyRecord, len(s.Records))
	for i, r := range s.Records {
		r.ID = i + 1
		r.PnL = r.PnL * rate
		r.Equity = r.Equity*rate + offset
		r.Currency = reporting
		out.Records[i] = r
	}

	out.Trades = make([]domain.Trade, len(s.Trades))
	for i, t := range s.Trades {
		t.PnL = t.PnL * rate
		out.Trades[i] = t
	}

	return out
}
