package pipeline

import (
	"sort"

	"github.com/fishbro/strategy-report/internal/domain"
)

// BuildPortfolio merges normalized strategy series into one combined daily
// series, aligned on the union of all dates. A date traded by only one
// strategy still appears; the others contribute zero that day. Each row keeps
// the signed per-strategy breakdown for correlation and contribution
// analysis.
//
// The inputs must already be normalized to a common currency: summing
// mixed-currency pnl would be meaningless, which is why conversion is a
// strictly earlier pipeline stage.
//
// startEquity is the portfolio's own baseline, configured independently of
// the per-strategy baselines.
func BuildPortfolio(series []domain.StrategySeries, startEquity float64) domain.PortfolioSeries {
	portfolio := domain.PortfolioSeries{
		StartEquity: startEquity,
		Strategies:  make([]string, 0, len(series)),
	}

	byStrategy := make(map[string]map[string]float64, len(series))
	dateSet := make(map[string]struct{})
	for _, s := range series {
		portfolio.Strategies = append(portfolio.Strategies, s.Strategy)
		pnlByDate := make(map[string]float64, len(s.Records))
		for _, r := range s.Records {
			pnlByDate[r.Date] = r.PnL
			dateSet[r.Date] = struct{}{}
		}
		byStrategy[s.Strategy] = pnlByDate
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	equity := startEquity
	portfolio.Rows = make([]domain.PortfolioRow, 0, len(dates))
	for _, date := range dates {
		contributions := make(map[string]float64)
		total := 0.0
		for _, name := range portfolio.Strategies {
			if pnl, ok := byStrategy[name][date]; ok {
				contributions[name] = pnl
				total += pnl
			}
		}
		equity += total

		day, _ := domain.ParseDate(date)
		portfolio.Rows = append(portfolio.Rows, domain.PortfolioRow{
			Date:          date,
			Year:          day.Year(),
			Month:         int(day.Month()),
			Contributions: contributions,
			PnL:           total,
			Equity:        equity,
		})
	}

	return portfolio
}
