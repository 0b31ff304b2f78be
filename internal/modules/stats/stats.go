// Package stats derives the dashboard's performance metrics from one daily
// series plus its underlying trade list. Both inputs matter: equity-based
// metrics (drawdown, Sharpe, recovery) come from the daily records, while
// win rate, profit factor, payoff, expectancy, and SQN must come from the
// discrete trades. A day netting +80 from trades +100/-50/+30 is one green
// daily record but two wins and one loss.
package stats

import (
	"math"

	"github.com/fishbro/strategy-report/internal/domain"
	"github.com/fishbro/strategy-report/pkg/formulas"
)

// Point is one daily record enriched with the drawdown curve and the
// moving-average overlay. SMA is nil until the window fills.
type Point struct {
	domain.DailyRecord
	Drawdown        float64  `json:"drawdown"`        // non-positive, 0 at new highs
	DrawdownPercent float64  `json:"drawdownPercent"` // non-positive
	SMA             *float64 `json:"sma"`
}

// Bundle is the full metric set for one view (a strategy or the portfolio).
// It is a pure function of its inputs and is recomputed, never persisted.
type Bundle struct {
	NetProfit          float64 `json:"netProfit"`
	GrossProfit        float64 `json:"grossProfit"`
	GrossLoss          float64 `json:"grossLoss"`
	WinRate            float64 `json:"winRate"`
	ProfitFactor       float64 `json:"profitFactor"`
	PayoffRatio        float64 `json:"payoffRatio"`
	AvgWin             float64 `json:"avgWin"`
	AvgLoss            float64 `json:"avgLoss"`
	Expectancy         float64 `json:"expectancy"`
	MaxDrawdownAmount  float64 `json:"maxDrawdownAmount"`
	MaxDrawdownPercent float64 `json:"maxDrawdownPercent"`
	RecoveryFactor     float64 `json:"recoveryFactor"`
	SharpeRatio        float64 `json:"sharpeRatio"`
	SQN                float64 `json:"sqn"`
	TotalTrades        int     `json:"totalTrades"`
	Wins               int     `json:"wins"`
	Losses             int     `json:"losses"`
	Points             []Point `json:"points"`
}

// Calculator computes stat bundles. The annualization factor and SMA window
// are configuration, not constants: the 252 only holds for daily trading-day
// sampling.
type Calculator struct {
	TradingDaysPerYear float64
	SMAWindow          int
}

// NewCalculator returns a calculator with the conventional daily-sampling
// defaults (252 trading days, 60-period SMA).
func NewCalculator() Calculator {
	return Calculator{TradingDaysPerYear: 252, SMAWindow: 60}
}

// Compute derives the full bundle. startEquity is the view's own baseline:
// the common per-strategy target for a strategy view, the portfolio baseline
// for the portfolio view. The two are different configured constants.
//
// An empty series yields a zeroed bundle; the dashboard renders a bundle
// unconditionally, so "no data" must never be an error here.
func (c Calculator) Compute(records []domain.DailyRecord, trades []domain.Trade, startEquity float64) Bundle {
	b := Bundle{Points: []Point{}}
	if len(records) == 0 {
		return b
	}

	b.Points = c.buildPoints(records)
	for _, p := range b.Points {
		if -p.Drawdown > b.MaxDrawdownAmount {
			b.MaxDrawdownAmount = -p.Drawdown
		}
		if -p.DrawdownPercent > b.MaxDrawdownPercent {
			b.MaxDrawdownPercent = -p.DrawdownPercent
		}
	}

	b.NetProfit = records[len(records)-1].Equity - startEquity

	c.computeTradeMetrics(&b, trades)

	// Recovery factor falls back to the bare numerator on a flawless curve.
	// Like the profit-factor fallback this can print misleadingly large
	// values; kept for continuity with the published reports.
	if b.MaxDrawdownAmount == 0 {
		b.RecoveryFactor = b.NetProfit
	} else {
		b.RecoveryFactor = b.NetProfit / b.MaxDrawdownAmount
	}

	b.SharpeRatio = c.sharpe(records)

	return b
}

// buildPoints walks the equity curve computing the drawdown from the running
// peak and the SMA overlay.
func (c Calculator) buildPoints(records []domain.DailyRecord) []Point {
	equity := make([]float64, len(records))
	for i, r := range records {
		equity[i] = r.Equity
	}
	sma := formulas.SMA(equity, c.SMAWindow)

	points := make([]Point, len(records))
	runningMax := math.Inf(-1)
	for i, r := range records {
		if r.Equity > runningMax {
			runningMax = r.Equity
		}
		dd := runningMax - r.Equity
		ddPct := 0.0
		if runningMax != 0 {
			ddPct = dd / runningMax * 100
		}
		points[i] = Point{
			DailyRecord:     r,
			Drawdown:        -dd,
			DrawdownPercent: -ddPct,
			SMA:             sma[i],
		}
	}
	return points
}

func (c Calculator) computeTradeMetrics(b *Bundle, trades []domain.Trade) {
	b.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	pnls := make([]float64, len(trades))
	for i, t := range trades {
		pnls[i] = t.PnL
		if t.PnL > 0 {
			b.Wins++
			b.GrossProfit += t.PnL
		} else {
			// Zero-pnl trades count as losses; the partition is exhaustive.
			b.Losses++
			b.GrossLoss += -t.PnL
		}
	}

	b.WinRate = float64(b.Wins) / float64(b.TotalTrades) * 100

	// Zero-denominator fallback: with no losing trades the "factor" is just
	// the gross profit. Not a true ratio; preserved as-is from the original
	// reports.
	if b.GrossLoss == 0 {
		b.ProfitFactor = b.GrossProfit
	} else {
		b.ProfitFactor = b.GrossProfit / b.GrossLoss
	}

	b.AvgWin = b.GrossProfit / math.Max(float64(b.Wins), 1)
	b.AvgLoss = b.GrossLoss / math.Max(float64(b.Losses), 1)
	if b.AvgLoss != 0 {
		b.PayoffRatio = b.AvgWin / b.AvgLoss
	}

	p := b.WinRate / 100
	b.Expectancy = p*b.AvgWin - (1-p)*b.AvgLoss

	// SQN over individual trade pnl, population stddev.
	stddev := formulas.PopStdDev(pnls)
	if stddev != 0 {
		b.SQN = math.Sqrt(float64(b.TotalTrades)) * formulas.Mean(pnls) / stddev
	}
}

// sharpe annualizes the mean-to-volatility ratio of daily equity returns.
// r[0] is 0 by convention so the return series aligns with the date axis.
func (c Calculator) sharpe(records []domain.DailyRecord) float64 {
	returns := make([]float64, len(records))
	for i := 1; i < len(records); i++ {
		prev := records[i-1].Equity
		if prev != 0 {
			returns[i] = (records[i].Equity - prev) / prev
		}
	}

	stddev := formulas.PopStdDev(returns)
	if stddev == 0 {
		return 0
	}
	return math.Sqrt(c.TradingDaysPerYear) * formulas.Mean(returns) / stddev
}
