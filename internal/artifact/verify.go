package artifact

import (
	"fmt"
	"math"
	"sort"

	"github.com/fishbro/strategy-report/internal/domain"
)

// Verify re-checks the pipeline's invariants on a built artifact before it is
// published. A failure here is a programming error in a transform, not bad
// input data, so the batch run refuses to publish rather than shipping a
// silently wrong report.
//
// Checked per strategy: equity continuity within tolerance, strictly
// ascending unique dates, and a uniform currency tag. Checked on the
// portfolio rows: the date axis equals the sorted union of all strategy
// dates, contributions match the strategy series' pnl, and row totals are
// consistent. Metadata counts must agree with the content.
func Verify(a *Artifact, reporting domain.Currency) error {
	allDates := make(map[string]struct{})

	for name, records := range a.Strategies {
		prevDate := ""
		for i, r := range records {
			if r.Currency != reporting {
				return fmt.Errorf("strategy %s: record %s has currency %s, want %s", name, r.Date, r.Currency, reporting)
			}
			if r.Date <= prevDate {
				return fmt.Errorf("strategy %s: dates not strictly ascending at %s", name, r.Date)
			}
			prevDate = r.Date
			allDates[r.Date] = struct{}{}

			if i > 0 {
				expected := records[i-1].Equity + r.PnL
				if math.Abs(expected-r.Equity) > domain.EquityTolerance {
					return fmt.Errorf("strategy %s: equity discontinuity at %s: have %.4f, want %.4f",
						name, r.Date, r.Equity, expected)
				}
			}
		}
	}

	union := make([]string, 0, len(allDates))
	for d := range allDates {
		union = append(union, d)
	}
	sort.Strings(union)

	if len(union) != len(a.RawPortfolioData) {
		return fmt.Errorf("portfolio covers %d dates, strategies cover %d", len(a.RawPortfolioData), len(union))
	}

	pnlByStrategyDate := make(map[string]map[string]float64, len(a.Strategies))
	for name, records := range a.Strategies {
		m := make(map[string]float64, len(records))
		for _, r := range records {
			m[r.Date] = r.PnL
		}
		pnlByStrategyDate[name] = m
	}

	prevEquity := math.NaN()
	for i, row := range a.RawPortfolioData {
		if row.Date != union[i] {
			return fmt.Errorf("portfolio row %d has date %s, want %s", i, row.Date, union[i])
		}

		total := 0.0
		for name, pnl := range row.Contributions {
			want, ok := pnlByStrategyDate[name][row.Date]
			if !ok {
				return fmt.Errorf("portfolio row %s: contribution from %s which has no record that day", row.Date, name)
			}
			if math.Abs(want-pnl) > domain.EquityTolerance {
				return fmt.Errorf("portfolio row %s: %s contribution %.4f, strategy pnl %.4f", row.Date, name, pnl, want)
			}
			total += pnl
		}
		if math.Abs(total-row.PnL) > domain.EquityTolerance {
			return fmt.Errorf("portfolio row %s: pnl %.4f, contributions sum %.4f", row.Date, row.PnL, total)
		}

		if i > 0 {
			expected := prevEquity + row.PnL
			if math.Abs(expected-row.Equity) > domain.EquityTolerance {
				return fmt.Errorf("portfolio: equity discontinuity at %s: have %.4f, want %.4f",
					row.Date, row.Equity, expected)
			}
		}
		prevEquity = row.Equity
	}

	if a.Metadata.TotalStrategies != len(a.Strategies) {
		return fmt.Errorf("metadata says %d strategies, artifact holds %d", a.Metadata.TotalStrategies, len(a.Strategies))
	}
	if a.Metadata.TotalDates != len(a.RawPortfolioData) {
		return fmt.Errorf("metadata says %d dates, artifact holds %d", a.Metadata.TotalDates, len(a.RawPortfolioData))
	}
	if len(union) > 0 {
		if a.Metadata.DateRange.Start != union[0] || a.Metadata.DateRange.End != union[len(union)-1] {
			return fmt.Errorf("metadata date range %s~%s does not match content %s~%s",
				a.Metadata.DateRange.Start, a.Metadata.DateRange.End, union[0], union[len(union)-1])
		}
	}

	return nil
}
