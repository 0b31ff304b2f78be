package report

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishbro/strategy-report/internal/database"
	"github.com/fishbro/strategy-report/internal/domain"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.Init())
	return repo
}

func storedSeries() []domain.StrategySeries {
	return []domain.StrategySeries{
		{
			Strategy:    "B_FIRST",
			Currency:    domain.CurrencyTWD,
			StartEquity: 1_000_000,
			Records: []domain.DailyRecord{
				{ID: 1, Date: "2024-01-02", Year: 2024, Month: 1, PnL: 100, Equity: 1_000_100, Strategy: "B_FIRST", Currency: domain.CurrencyTWD},
			},
			Trades: []domain.Trade{{Date: "2024-01-02", PnL: 100}},
		},
		{
			Strategy:    "A_SECOND",
			Currency:    domain.CurrencyTWD,
			StartEquity: 1_000_000,
			Records: []domain.DailyRecord{
				{ID: 1, Date: "2024-01-02", Year: 2024, Month: 1, PnL: -30, Equity: 999_970, Strategy: "A_SECOND", Currency: domain.CurrencyTWD},
				{ID: 2, Date: "2024-01-03", Year: 2024, Month: 1, PnL: 80, Equity: 1_000_050, Strategy: "A_SECOND", Currency: domain.CurrencyTWD},
			},
			Trades: []domain.Trade{{Date: "2024-01-02", PnL: -30}, {Date: "2024-01-03", PnL: 80}},
		},
	}
}

func storedPortfolio() domain.PortfolioSeries {
	return domain.PortfolioSeries{
		Strategies:  []string{"B_FIRST", "A_SECOND"},
		StartEquity: 5_000_000,
		Rows: []domain.PortfolioRow{
			{Date: "2024-01-02", Year: 2024, Month: 1, Contributions: map[string]float64{"B_FIRST": 100, "A_SECOND": -30}, PnL: 70, Equity: 5_000_070},
			{Date: "2024-01-03", Year: 2024, Month: 1, Contributions: map[string]float64{"A_SECOND": 80}, PnL: 80, Equity: 5_000_150},
		},
	}
}

func TestRepository_RoundTrip(t *testing.T) {
	repo := testRepo(t)
	require.NoError(t, repo.ReplaceAll(storedSeries(), storedPortfolio()))

	series, err := repo.LoadSeries()
	require.NoError(t, err)
	require.Len(t, series, 2)

	// Configuration order survives, not alphabetical order.
	assert.Equal(t, "B_FIRST", series[0].Strategy)
	assert.Equal(t, "A_SECOND", series[1].Strategy)

	assert.Equal(t, 1_000_000.0, series[1].StartEquity)
	require.Len(t, series[1].Records, 2)
	assert.Equal(t, -30.0, series[1].Records[0].PnL)
	require.NoError(t, series[1].ValidateContinuity())
	assert.Len(t, series[1].Trades, 2)

	portfolio, err := repo.LoadPortfolio()
	require.NoError(t, err)
	assert.Equal(t, 5_000_000.0, portfolio.StartEquity)
	assert.Equal(t, []string{"B_FIRST", "A_SECOND"}, portfolio.Strategies)
	require.Len(t, portfolio.Rows, 2)
	assert.Equal(t, map[string]float64{"B_FIRST": 100, "A_SECOND": -30}, portfolio.Rows[0].Contributions)
	require.NoError(t, portfolio.ValidateContinuity())
}

func TestRepository_ReplaceAllDropsPreviousSnapshot(t *testing.T) {
	repo := testRepo(t)
	require.NoError(t, repo.ReplaceAll(storedSeries(), storedPortfolio()))

	// Second run with a single strategy replaces, not appends.
	replacement := storedSeries()[1:]
	p := domain.PortfolioSeries{
		Strategies:  []string{"A_SECOND"},
		StartEquity: 5_000_000,
		Rows: []domain.PortfolioRow{
			{Date: "2024-01-02", Year: 2024, Month: 1, Contributions: map[string]float64{"A_SECOND": -30}, PnL: -30, Equity: 4_999_970},
			{Date: "2024-01-03", Year: 2024, Month: 1, Contributions: map[string]float64{"A_SECOND": 80}, PnL: 80, Equity: 5_000_050},
		},
	}
	require.NoError(t, repo.ReplaceAll(replacement, p))

	series, err := repo.LoadSeries()
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "A_SECOND", series[0].Strategy)

	_, err = repo.LoadStrategy("B_FIRST")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRepository_LoadPortfolioEmptyStore(t *testing.T) {
	repo := testRepo(t)

	portfolio, err := repo.LoadPortfolio()
	require.NoError(t, err)
	assert.True(t, portfolio.Empty())
	assert.Zero(t, portfolio.StartEquity)
}

func TestRepository_LoadStrategyUnknown(t *testing.T) {
	repo := testRepo(t)
	require.NoError(t, repo.ReplaceAll(storedSeries(), storedPortfolio()))

	_, err := repo.LoadStrategy("NOPE")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
