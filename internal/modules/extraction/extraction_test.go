package extraction

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishbro/strategy-report/internal/config"
	"github.com/fishbro/strategy-report/internal/domain"
)

func TestParse_LocalizedHeader(t *testing.T) {
	csv := strings.Join([]string{
		"序號,日期,獲利",
		"1,2024-01-02,\"1,250\"",
		"2,2024/01/03,-300",
	}, "\n")

	trades, skipped, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Zero(t, skipped)

	require.Len(t, trades, 2)
	assert.Equal(t, "2024-01-02", trades[0].Date.Format(domain.DateLayout))
	assert.Equal(t, 1250.0, trades[0].PnL)
	assert.Equal(t, "2024-01-03", trades[1].Date.Format(domain.DateLayout))
	assert.Equal(t, -300.0, trades[1].PnL)
}

func TestParse_EnglishHeader(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Profit",
		"2024-01-02,100.5",
	}, "\n")

	trades, skipped, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.5, trades[0].PnL)
}

func TestParse_HeaderlessSniffsColumns(t *testing.T) {
	csv := strings.Join([]string{
		"2024-01-02,150",
		"2024-01-03,-75",
	}, "\n")

	trades, skipped, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, trades, 2)
	assert.Equal(t, 150.0, trades[0].PnL)
}

func TestParse_ExcelSerialDates(t *testing.T) {
	// 45292 is 2024-01-01 in the 1899-12-30 epoch.
	csv := strings.Join([]string{
		"日期,損益",
		"45292,500",
		"45293,-100",
	}, "\n")

	trades, skipped, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Zero(t, skipped)

	require.Len(t, trades, 2)
	assert.Equal(t, "2024-01-01", trades[0].Date.Format(domain.DateLayout))
	assert.Equal(t, "2024-01-02", trades[1].Date.Format(domain.DateLayout))
}

func TestParse_MalformedRowsSkippedAndCounted(t *testing.T) {
	csv := strings.Join([]string{
		"Date,PnL",
		"2024-01-02,100",
		"not-a-date,200",
		"2024-01-04,garbage",
		"2024-01-05,300",
	}, "\n")

	trades, skipped, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, skipped)
	require.Len(t, trades, 2)
	assert.Equal(t, 100.0, trades[0].PnL)
	assert.Equal(t, 300.0, trades[1].PnL)
}

func TestParse_DateTimeCellsTruncatedToDay(t *testing.T) {
	csv := strings.Join([]string{
		"Date,PnL",
		"2024-01-02 13:45:00,100",
	}, "\n")

	trades, _, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "2024-01-02", trades[0].Date.Format(domain.DateLayout))
}

func TestParse_NoUsableColumnsFails(t *testing.T) {
	csv := "alpha,beta\nfoo,bar\n"

	_, _, err := Parse(strings.NewReader(csv))
	require.Error(t, err)
}

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,PnL\n2024-01-02,100\n"), 0o644))

	source := NewCSVSource([]string{dir}, zerolog.Nop())

	trades, skipped, err := source.Load(config.StrategyConfig{
		Name:  "TEST",
		Files: []string{"missing.csv", "export.csv"},
	})
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, trades, 1)
}

func TestCSVSource_LoadMissingReportsNotExist(t *testing.T) {
	source := NewCSVSource([]string{t.TempDir()}, zerolog.Nop())

	_, _, err := source.Load(config.StrategyConfig{
		Name:  "TEST",
		Files: []string{"nope.csv"},
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}
