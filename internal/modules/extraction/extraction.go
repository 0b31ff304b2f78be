// Package extraction is the I/O-facing edge of the pipeline: it turns raw
// backtest CSV exports into (date, pnl) trade tuples. The exports come from a
// retail backtesting tool with an unstable layout (localized header text,
// unnamed columns, thousands separators, sometimes Excel serial dates), so
// column detection is best-effort schema sniffing. Everything downstream of
// this package works on parsed values only.
package extraction

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fishbro/strategy-report/internal/config"
	"github.com/fishbro/strategy-report/internal/modules/pipeline"
)

// header substrings that identify the date and pnl columns in the export
var (
	dateHeaderHints = []string{"日期", "Date", "date"}
	pnlHeaderHints  = []string{"獲利", "損益", "PnL", "Profit", "profit"}
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
}

// CSVSource loads a strategy's export from disk, trying each configured
// filename in each search path in order.
type CSVSource struct {
	searchPaths []string
	log         zerolog.Logger
}

// NewCSVSource creates a CSV source over the given search paths.
func NewCSVSource(searchPaths []string, log zerolog.Logger) *CSVSource {
	return &CSVSource{
		searchPaths: searchPaths,
		log:         log.With().Str("component", "extraction").Logger(),
	}
}

// Load finds and parses the first existing export file for the strategy.
// A missing file returns os.ErrNotExist so the pipeline can treat the
// strategy as absent rather than failing the run.
func (s *CSVSource) Load(cfg config.StrategyConfig) ([]pipeline.RawTrade, int, error) {
	for _, name := range cfg.Files {
		for _, dir := range s.searchPaths {
			path := filepath.Join(dir, name)
			f, err := os.Open(path)
			if err != nil {
				continue
			}
			defer f.Close()

			s.log.Debug().Str("strategy", cfg.Name).Str("file", path).Msg("Parsing export")
			trades, skipped, err := Parse(f)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			if skipped > 0 {
				s.log.Warn().Str("strategy", cfg.Name).Int("skipped", skipped).Msg("Skipped malformed rows")
			}
			return trades, skipped, nil
		}
	}
	return nil, 0, fmt.Errorf("no export file for strategy %s: %w", cfg.Name, os.ErrNotExist)
}

// Parse reads a trade-detail CSV and extracts one RawTrade per data row.
// Rows whose date or pnl cannot be parsed are skipped and counted; they are a
// warning condition, never fatal.
func Parse(r io.Reader) ([]pipeline.RawTrade, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	dateCol, pnlCol, dataStart := detectColumns(rows)
	if dateCol < 0 || pnlCol < 0 {
		return nil, 0, fmt.Errorf("could not locate date and pnl columns")
	}

	var trades []pipeline.RawTrade
	skipped := 0
	for _, row := range rows[dataStart:] {
		if dateCol >= len(row) || pnlCol >= len(row) {
			skipped++
			continue
		}

		date, ok := parseDate(strings.TrimSpace(row[dateCol]))
		if !ok {
			skipped++
			continue
		}
		pnl, ok := parseAmount(strings.TrimSpace(row[pnlCol]))
		if !ok {
			skipped++
			continue
		}

		trades = append(trades, pipeline.RawTrade{Date: date, PnL: pnl})
	}

	return trades, skipped, nil
}

// detectColumns finds the date and pnl column indexes. It first looks for a
// header row by its localized column titles; failing that, it sniffs the
// first data row for a date-shaped cell and a numeric cell.
func detectColumns(rows [][]string) (dateCol, pnlCol, dataStart int) {
	dateCol, pnlCol = -1, -1

	header := rows[0]
	isHeader := false
	for i, cell := range header {
		cell = strings.TrimSpace(cell)
		if containsAny(cell, dateHeaderHints) {
			if _, ok := parseDate(cell); !ok { // "日期" title, not an actual date
				isHeader = true
				if dateCol < 0 {
					dateCol = i
				}
			}
		}
		if containsAny(cell, pnlHeaderHints) {
			if _, ok := parseAmount(cell); !ok {
				isHeader = true
				if pnlCol < 0 {
					pnlCol = i
				}
			}
		}
	}
	if isHeader {
		dataStart = 1
	}

	if (dateCol < 0 || pnlCol < 0) && len(rows) > dataStart {
		sample := rows[dataStart]
		if dateCol < 0 {
			for i, cell := range sample {
				if _, ok := parseDate(strings.TrimSpace(cell)); ok {
					dateCol = i
					break
				}
			}
		}
		if pnlCol < 0 {
			for i, cell := range sample {
				if i == dateCol {
					continue
				}
				if v, ok := parseAmount(strings.TrimSpace(cell)); ok && v != 0 {
					pnlCol = i
					break
				}
			}
		}
	}

	return dateCol, pnlCol, dataStart
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// parseDate accepts the export's date formats, including Excel serial
// numbers (days since 1899-12-30). The result is truncated to the calendar
// day.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(24 * time.Hour), true
		}
	}

	// Excel serial date. The magnitude check keeps plain integers like trade
	// ids from being mistaken for dates.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 1000 && serial < 1_000_000 {
		epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
		t := epoch.Add(time.Duration(serial * 24 * float64(time.Hour)))
		return t.Truncate(24 * time.Hour), true
	}

	return time.Time{}, false
}

// parseAmount parses a signed monetary amount, tolerating thousands
// separators.
func parseAmount(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
