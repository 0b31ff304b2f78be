package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishbro/strategy-report/internal/domain"
)

func usdSeries() domain.StrategySeries {
	return BuildStrategySeries("USD_STRAT", domain.CurrencyUSD, 100_000, []RawTrade{
		{Date: day(2024, 1, 2), PnL: 1000},
		{Date: day(2024, 1, 3), PnL: -400},
		{Date: day(2024, 1, 4), PnL: 250},
	})
}

func TestNormalize_RebasesToTargetStartEquity(t *testing.T) {
	s := usdSeries()
	n := Normalize(s, 32.5, 1_000_000, domain.CurrencyTWD)

	// First equity equals target plus the first converted pnl.
	require.Len(t, n.Records, 3)
	assert.InDelta(t, 1_000_000+1000*32.5, n.Records[0].Equity, 1e-6)
	assert.Equal(t, domain.CurrencyTWD, n.Currency)
	assert.Equal(t, 1_000_000.0, n.StartEquity)

	require.NoError(t, n.ValidateContinuity())
}

func TestNormalize_PnLDeltasScaleByRateOnly(t *testing.T) {
	s := usdSeries()
	n := Normalize(s, 32.5, 1_000_000, domain.CurrencyTWD)

	// The offset shifts levels, never deltas.
	for i, r := range n.Records {
		assert.InDelta(t, s.Records[i].PnL*32.5, r.PnL, 1e-6, "record %d", i)
	}
	for i, tr := range n.Trades {
		assert.InDelta(t, s.Trades[i].PnL*32.5, tr.PnL, 1e-6, "trade %d", i)
	}
}

func TestNormalize_IdentityRateStillRebases(t *testing.T) {
	s := BuildStrategySeries("TWD_STRAT", domain.CurrencyTWD, 100_000, []RawTrade{
		{Date: day(2024, 1, 2), PnL: 1000},
	})
	n := Normalize(s, 1, 1_000_000, domain.CurrencyTWD)

	// Same currency, but the curve still moves from the 100k source baseline
	// to the shared 1M target.
	require.Len(t, n.Records, 1)
	assert.InDelta(t, 1_001_000, n.Records[0].Equity, 1e-6)
	assert.InDelta(t, 1000, n.Records[0].PnL, 1e-6)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	s := usdSeries()
	origEquity := s.Records[0].Equity
	origPnL := s.Trades[0].PnL

	_ = Normalize(s, 32.5, 1_000_000, domain.CurrencyTWD)

	assert.Equal(t, origEquity, s.Records[0].Equity)
	assert.Equal(t, origPnL, s.Trades[0].PnL)
	assert.Equal(t, domain.CurrencyUSD, s.Currency)
}

func TestNormalize_EmptySeries(t *testing.T) {
	n := Normalize(domain.StrategySeries{Strategy: "EMPTY", Currency: domain.CurrencyUSD}, 32.5, 1_000_000, domain.CurrencyTWD)

	assert.True(t, n.Empty())
	assert.Equal(t, 1_000_000.0, n.StartEquity)
	assert.Equal(t, domain.CurrencyTWD, n.Currency)
}
