// Package analytics computes cross-strategy views over the merged portfolio:
// the pairwise correlation matrix and the pnl contribution breakdown. Both
// operate on the portfolio's date-aligned contribution vectors so that a
// strategy absent on a date counts as zero, consistent with how the
// portfolio itself is summed.
package analytics

import (
	"github.com/fishbro/strategy-report/internal/domain"
	"github.com/fishbro/strategy-report/pkg/formulas"
)

// Matrix is a symmetric Pearson correlation matrix over the portfolio's
// constituent strategies, in portfolio order.
type Matrix struct {
	Strategies []string    `json:"strategies"`
	Values     [][]float64 `json:"values"`
}

// Contribution is one strategy's total pnl over the whole date range.
type Contribution struct {
	Strategy string  `json:"strategy"`
	TotalPnL float64 `json:"totalPnl"`
}

// CorrelationMatrix computes pairwise Pearson correlations of the daily
// contribution vectors. Self-pairs are 1 whenever the series has variance; a
// zero-variance series correlates 0 with everything, itself included, rather
// than producing NaN.
func CorrelationMatrix(p domain.PortfolioSeries) Matrix {
	n := len(p.Strategies)
	m := Matrix{
		Strategies: append([]string(nil), p.Strategies...),
		Values:     make([][]float64, n),
	}

	vectors := make([][]float64, n)
	for i, name := range p.Strategies {
		vectors[i] = p.ContributionVector(name)
	}

	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			r := formulas.Correlation(vectors[i], vectors[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}

	return m
}

// ContributionBreakdown sums each strategy's daily contributions over the
// full range. Strategies with non-positive totals are excluded: the
// breakdown feeds a proportional share chart where negative slices have no
// meaning.
func ContributionBreakdown(p domain.PortfolioSeries) []Contribution {
	var out []Contribution
	for _, name := range p.Strategies {
		total := 0.0
		for _, v := range p.ContributionVector(name) {
			total += v
		}
		if total > 0 {
			out = append(out, Contribution{Strategy: name, TotalPnL: total})
		}
	}
	return out
}
