package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishbro/strategy-report/internal/domain"
)

func TestBuildPortfolio_TwoStrategiesOneDate(t *testing.T) {
	// A USD strategy and a TWD strategy each make +1000 in their own currency
	// on the same day, normalized at rates 32.5 and 1.
	usd := Normalize(
		BuildStrategySeries("USD_STRAT", domain.CurrencyUSD, 100_000, []RawTrade{
			{Date: day(2024, 1, 2), PnL: 1000},
		}),
		32.5, 1_000_000, domain.CurrencyTWD,
	)
	twd := Normalize(
		BuildStrategySeries("TWD_STRAT", domain.CurrencyTWD, 100_000, []RawTrade{
			{Date: day(2024, 1, 2), PnL: 1000},
		}),
		1, 1_000_000, domain.CurrencyTWD,
	)

	assert.InDelta(t, 1_032_500, usd.Records[0].Equity, 1e-6)
	assert.InDelta(t, 1_001_000, twd.Records[0].Equity, 1e-6)

	p := BuildPortfolio([]domain.StrategySeries{usd, twd}, 2_000_000)

	require.Len(t, p.Rows, 1)
	row := p.Rows[0]
	assert.InDelta(t, 33_500, row.PnL, 1e-6)
	assert.InDelta(t, 2_033_500, row.Equity, 1e-6)
	assert.InDelta(t, 32_500, row.Contributions["USD_STRAT"], 1e-6)
	assert.InDelta(t, 1000, row.Contributions["TWD_STRAT"], 1e-6)

	require.NoError(t, p.ValidateContinuity())
}

func TestBuildPortfolio_DateUnion(t *testing.T) {
	a := BuildStrategySeries("A", domain.CurrencyTWD, 100_000, []RawTrade{
		{Date: day(2024, 1, 2), PnL: 100},
		{Date: day(2024, 1, 4), PnL: 300},
	})
	b := BuildStrategySeries("B", domain.CurrencyTWD, 100_000, []RawTrade{
		{Date: day(2024, 1, 3), PnL: -50},
		{Date: day(2024, 1, 4), PnL: 75},
	})

	p := BuildPortfolio([]domain.StrategySeries{a, b}, 1_000_000)

	require.Len(t, p.Rows, 3)
	assert.Equal(t, []string{"A", "B"}, p.Strategies)

	// Jan 2: only A traded. B is absent from the map, not zero-valued.
	assert.Equal(t, "2024-01-02", p.Rows[0].Date)
	assert.Equal(t, 100.0, p.Rows[0].PnL)
	_, hasB := p.Rows[0].Contributions["B"]
	assert.False(t, hasB)

	// Jan 3: only B.
	assert.Equal(t, -50.0, p.Rows[1].PnL)

	// Jan 4: both.
	assert.Equal(t, 375.0, p.Rows[2].PnL)
	assert.Equal(t, 300.0, p.Rows[2].Contributions["A"])
	assert.Equal(t, 75.0, p.Rows[2].Contributions["B"])

	// Equity walks from the portfolio baseline, not the strategy baselines.
	assert.InDelta(t, 1_000_100, p.Rows[0].Equity, 1e-6)
	assert.InDelta(t, 1_000_050, p.Rows[1].Equity, 1e-6)
	assert.InDelta(t, 1_000_425, p.Rows[2].Equity, 1e-6)

	require.NoError(t, p.ValidateContinuity())
}

func TestBuildPortfolio_ContributionVectorAlignsToDateAxis(t *testing.T) {
	a := BuildStrategySeries("A", domain.CurrencyTWD, 100_000, []RawTrade{
		{Date: day(2024, 1, 2), PnL: 100},
	})
	b := BuildStrategySeries("B", domain.CurrencyTWD, 100_000, []RawTrade{
		{Date: day(2024, 1, 3), PnL: 200},
	})

	p := BuildPortfolio([]domain.StrategySeries{a, b}, 1_000_000)

	assert.Equal(t, []float64{100, 0}, p.ContributionVector("A"))
	assert.Equal(t, []float64{0, 200}, p.ContributionVector("B"))
}

func TestBuildPortfolio_Empty(t *testing.T) {
	p := BuildPortfolio(nil, 5_000_000)

	assert.True(t, p.Empty())
	assert.Equal(t, 5_000_000.0, p.StartEquity)
}
