package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishbro/strategy-report/internal/domain"
)

func sampleSeries() []domain.StrategySeries {
	return []domain.StrategySeries{
		{
			Strategy:    "A",
			Currency:    domain.CurrencyTWD,
			StartEquity: 1_000_000,
			Records: []domain.DailyRecord{
				{ID: 1, Date: "2024-01-02", Year: 2024, Month: 1, PnL: 100, Equity: 1_000_100, Strategy: "A", Currency: domain.CurrencyTWD},
				{ID: 2, Date: "2024-01-03", Year: 2024, Month: 1, PnL: -40, Equity: 1_000_060, Strategy: "A", Currency: domain.CurrencyTWD},
			},
			Trades: []domain.Trade{{Date: "2024-01-02", PnL: 100}, {Date: "2024-01-03", PnL: -40}},
		},
		{
			Strategy:    "B",
			Currency:    domain.CurrencyTWD,
			StartEquity: 1_000_000,
			Records: []domain.DailyRecord{
				{ID: 1, Date: "2024-01-03", Year: 2024, Month: 1, PnL: 200, Equity: 1_000_200, Strategy: "B", Currency: domain.CurrencyTWD},
			},
			Trades: []domain.Trade{{Date: "2024-01-03", PnL: 200}},
		},
	}
}

func samplePortfolio() domain.PortfolioSeries {
	return domain.PortfolioSeries{
		Strategies:  []string{"A", "B"},
		StartEquity: 5_000_000,
		Rows: []domain.PortfolioRow{
			{Date: "2024-01-02", Year: 2024, Month: 1, Contributions: map[string]float64{"A": 100}, PnL: 100, Equity: 5_000_100},
			{Date: "2024-01-03", Year: 2024, Month: 1, Contributions: map[string]float64{"A": -40, "B": 200}, PnL: 160, Equity: 5_000_260},
		},
	}
}

func TestBuild_MetadataAndContent(t *testing.T) {
	generated := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	rates := map[string]float64{"USD": 32.5, "TWD": 1}

	a := Build(sampleSeries(), samplePortfolio(), rates, generated)

	assert.Equal(t, 2, a.Metadata.TotalStrategies)
	assert.Equal(t, 2, a.Metadata.TotalDates)
	assert.Equal(t, "2024-01-02", a.Metadata.DateRange.Start)
	assert.Equal(t, "2024-01-03", a.Metadata.DateRange.End)
	assert.Equal(t, generated, a.Metadata.GeneratedAt)
	assert.Equal(t, rates, a.Metadata.ExchangeRate)

	assert.Len(t, a.Strategies["A"], 2)
	assert.Len(t, a.Trades["B"], 1)
}

func TestBuild_EmptyStrategyKeepsEmptySlices(t *testing.T) {
	series := []domain.StrategySeries{{Strategy: "EMPTY", Currency: domain.CurrencyTWD, StartEquity: 1_000_000}}

	a := Build(series, domain.PortfolioSeries{Strategies: []string{"EMPTY"}, StartEquity: 5_000_000}, nil, time.Now())

	records, ok := a.Strategies["EMPTY"]
	require.True(t, ok)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	// Empty slices must serialize as [], not null.
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"EMPTY":[]`)
}

func TestRowMarshal_FlattensContributions(t *testing.T) {
	row := Row{
		Date:          "2024-01-03",
		Year:          2024,
		Month:         1,
		PnL:           160,
		Equity:        5_000_260,
		Contributions: map[string]float64{"A": -40, "B": 200},
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))

	assert.Equal(t, "2024-01-03", flat["date"])
	assert.Equal(t, -40.0, flat["pnl_A"])
	assert.Equal(t, 200.0, flat["pnl_B"])
	assert.Equal(t, -40.0, flat["pnlTWD_A"])
	assert.Equal(t, 160.0, flat["pnl"])
	assert.Equal(t, 5_000_260.0, flat["equity"])

	// No nested contributions object leaks through.
	_, hasNested := flat["Contributions"]
	assert.False(t, hasNested)
}

func TestVerify_AcceptsConsistentArtifact(t *testing.T) {
	a := Build(sampleSeries(), samplePortfolio(), nil, time.Now())
	require.NoError(t, Verify(a, domain.CurrencyTWD))
}

func TestVerify_RejectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Artifact)
		wantErr string
	}{
		{
			name:    "equity discontinuity",
			mutate:  func(a *Artifact) { a.Strategies["A"][1].Equity += 10 },
			wantErr: "discontinuity",
		},
		{
			name:    "wrong currency",
			mutate:  func(a *Artifact) { a.Strategies["A"][0].Currency = domain.CurrencyUSD },
			wantErr: "currency",
		},
		{
			name:    "contribution mismatch",
			mutate:  func(a *Artifact) { a.RawPortfolioData[0].Contributions["A"] = 999 },
			wantErr: "contribution",
		},
		{
			name:    "missing portfolio row",
			mutate:  func(a *Artifact) { a.RawPortfolioData = a.RawPortfolioData[:1] },
			wantErr: "dates",
		},
		{
			name:    "metadata count mismatch",
			mutate:  func(a *Artifact) { a.Metadata.TotalStrategies = 7 },
			wantErr: "metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Build(sampleSeries(), samplePortfolio(), nil, time.Now())
			tt.mutate(a)
			err := Verify(a, domain.CurrencyTWD)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWrite_PublishesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "strategies.json")

	a := Build(sampleSeries(), samplePortfolio(), map[string]float64{"TWD": 1}, time.Now())
	require.NoError(t, a.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "strategies")
	assert.Contains(t, decoded, "rawPortfolioData")
	assert.Contains(t, decoded, "metadata")

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
