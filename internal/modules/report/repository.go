package report

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fishbro/strategy-report/internal/database"
	"github.com/fishbro/strategy-report/internal/domain"
)

// Repository persists the normalized output of a pipeline run: per-strategy
// daily records and trades, plus the merged portfolio rows. The stored data
// is always a complete snapshot of one run; ReplaceAll swaps it in a single
// transaction so readers never observe a half-updated report.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a report repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "report").Logger(),
	}
}

// Init creates the schema if it does not exist.
func (r *Repository) Init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS series_meta (
			strategy     TEXT PRIMARY KEY,
			position     INTEGER NOT NULL,
			currency     TEXT NOT NULL,
			start_equity REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_records (
			strategy TEXT NOT NULL,
			date     TEXT NOT NULL,
			year     INTEGER NOT NULL,
			month    INTEGER NOT NULL,
			pnl      REAL NOT NULL,
			equity   REAL NOT NULL,
			currency TEXT NOT NULL,
			PRIMARY KEY (strategy, date)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy TEXT NOT NULL,
			date     TEXT NOT NULL,
			pnl      REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_meta (
			id           INTEGER PRIMARY KEY CHECK (id = 1),
			start_equity REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_rows (
			date   TEXT PRIMARY KEY,
			year   INTEGER NOT NULL,
			month  INTEGER NOT NULL,
			pnl    REAL NOT NULL,
			equity REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_contributions (
			date     TEXT NOT NULL,
			strategy TEXT NOT NULL,
			pnl      REAL NOT NULL,
			PRIMARY KEY (date, strategy)
		)`,
	}

	for _, stmt := range schema {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// ReplaceAll swaps the stored snapshot for a new pipeline result in one
// transaction.
func (r *Repository) ReplaceAll(series []domain.StrategySeries, portfolio domain.PortfolioSeries) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"series_meta", "daily_records", "trades", "portfolio_meta", "portfolio_rows", "portfolio_contributions"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for pos, s := range series {
		if _, err := tx.Exec(
			"INSERT INTO series_meta (strategy, position, currency, start_equity) VALUES (?, ?, ?, ?)",
			s.Strategy, pos, string(s.Currency), s.StartEquity,
		); err != nil {
			return fmt.Errorf("failed to insert series meta for %s: %w", s.Strategy, err)
		}

		for _, rec := range s.Records {
			if _, err := tx.Exec(
				"INSERT INTO daily_records (strategy, date, year, month, pnl, equity, currency) VALUES (?, ?, ?, ?, ?, ?, ?)",
				rec.Strategy, rec.Date, rec.Year, rec.Month, rec.PnL, rec.Equity, string(rec.Currency),
			); err != nil {
				return fmt.Errorf("failed to insert daily record %s/%s: %w", rec.Strategy, rec.Date, err)
			}
		}

		for _, t := range s.Trades {
			if _, err := tx.Exec(
				"INSERT INTO trades (strategy, date, pnl) VALUES (?, ?, ?)",
				s.Strategy, t.Date, t.PnL,
			); err != nil {
				return fmt.Errorf("failed to insert trade %s/%s: %w", s.Strategy, t.Date, err)
			}
		}
	}

	if _, err := tx.Exec("INSERT INTO portfolio_meta (id, start_equity) VALUES (1, ?)", portfolio.StartEquity); err != nil {
		return fmt.Errorf("failed to insert portfolio meta: %w", err)
	}

	for _, row := range portfolio.Rows {
		if _, err := tx.Exec(
			"INSERT INTO portfolio_rows (date, year, month, pnl, equity) VALUES (?, ?, ?, ?, ?)",
			row.Date, row.Year, row.Month, row.PnL, row.Equity,
		); err != nil {
			return fmt.Errorf("failed to insert portfolio row %s: %w", row.Date, err)
		}
		for name, pnl := range row.Contributions {
			if _, err := tx.Exec(
				"INSERT INTO portfolio_contributions (date, strategy, pnl) VALUES (?, ?, ?)",
				row.Date, name, pnl,
			); err != nil {
				return fmt.Errorf("failed to insert contribution %s/%s: %w", row.Date, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	r.log.Info().Int("strategies", len(series)).Int("dates", len(portfolio.Rows)).Msg("Snapshot stored")
	return nil
}

// LoadSeries reads all stored strategy series, in their original
// configuration order.
func (r *Repository) LoadSeries() ([]domain.StrategySeries, error) {
	rows, err := r.db.Query("SELECT strategy, currency, start_equity FROM series_meta ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query series meta: %w", err)
	}
	defer rows.Close()

	var series []domain.StrategySeries
	for rows.Next() {
		var s domain.StrategySeries
		var currency string
		if err := rows.Scan(&s.Strategy, &currency, &s.StartEquity); err != nil {
			return nil, fmt.Errorf("failed to scan series meta: %w", err)
		}
		s.Currency = domain.Currency(currency)
		series = append(series, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series meta: %w", err)
	}

	for i := range series {
		if series[i].Records, err = r.loadRecords(series[i].Strategy); err != nil {
			return nil, err
		}
		if series[i].Trades, err = r.loadTrades(series[i].Strategy); err != nil {
			return nil, err
		}
	}
	return series, nil
}

// LoadStrategy reads one stored strategy series. sql.ErrNoRows is returned
// when the strategy is unknown.
func (r *Repository) LoadStrategy(name string) (domain.StrategySeries, error) {
	var s domain.StrategySeries
	var currency string
	err := r.db.QueryRow(
		"SELECT strategy, currency, start_equity FROM series_meta WHERE strategy = ?", name,
	).Scan(&s.Strategy, &currency, &s.StartEquity)
	if err != nil {
		return domain.StrategySeries{}, err
	}
	s.Currency = domain.Currency(currency)

	if s.Records, err = r.loadRecords(name); err != nil {
		return domain.StrategySeries{}, err
	}
	if s.Trades, err = r.loadTrades(name); err != nil {
		return domain.StrategySeries{}, err
	}
	return s, nil
}

func (r *Repository) loadRecords(strategy string) ([]domain.DailyRecord, error) {
	rows, err := r.db.Query(
		"SELECT date, year, month, pnl, equity, currency FROM daily_records WHERE strategy = ? ORDER BY date",
		strategy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily records for %s: %w", strategy, err)
	}
	defer rows.Close()

	var records []domain.DailyRecord
	for rows.Next() {
		var rec domain.DailyRecord
		var currency string
		if err := rows.Scan(&rec.Date, &rec.Year, &rec.Month, &rec.PnL, &rec.Equity, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan daily record: %w", err)
		}
		rec.ID = len(records) + 1
		rec.Strategy = strategy
		rec.Currency = domain.Currency(currency)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) loadTrades(strategy string) ([]domain.Trade, error) {
	rows, err := r.db.Query("SELECT date, pnl FROM trades WHERE strategy = ? ORDER BY id", strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for %s: %w", strategy, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.Date, &t.PnL); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// LoadPortfolio reads the stored portfolio series. An empty store returns an
// empty series with a zero baseline.
func (r *Repository) LoadPortfolio() (domain.PortfolioSeries, error) {
	var p domain.PortfolioSeries

	err := r.db.QueryRow("SELECT start_equity FROM portfolio_meta WHERE id = 1").Scan(&p.StartEquity)
	if err == sql.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to query portfolio meta: %w", err)
	}

	metaRows, err := r.db.Query("SELECT strategy FROM series_meta ORDER BY position")
	if err != nil {
		return p, fmt.Errorf("failed to query series meta: %w", err)
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var name string
		if err := metaRows.Scan(&name); err != nil {
			return p, fmt.Errorf("failed to scan strategy name: %w", err)
		}
		p.Strategies = append(p.Strategies, name)
	}
	if err := metaRows.Err(); err != nil {
		return p, fmt.Errorf("error iterating series meta: %w", err)
	}

	rows, err := r.db.Query("SELECT date, year, month, pnl, equity FROM portfolio_rows ORDER BY date")
	if err != nil {
		return p, fmt.Errorf("failed to query portfolio rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.PortfolioRow
		if err := rows.Scan(&row.Date, &row.Year, &row.Month, &row.PnL, &row.Equity); err != nil {
			return p, fmt.Errorf("failed to scan portfolio row: %w", err)
		}
		row.Contributions = make(map[string]float64)
		p.Rows = append(p.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return p, fmt.Errorf("error iterating portfolio rows: %w", err)
	}

	contribRows, err := r.db.Query("SELECT date, strategy, pnl FROM portfolio_contributions")
	if err != nil {
		return p, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer contribRows.Close()

	byDate := make(map[string]*domain.PortfolioRow, len(p.Rows))
	for i := range p.Rows {
		byDate[p.Rows[i].Date] = &p.Rows[i]
	}
	for contribRows.Next() {
		var date, strategy string
		var pnl float64
		if err := contribRows.Scan(&date, &strategy, &pnl); err != nil {
			return p, fmt.Errorf("failed to scan contribution: %w", err)
		}
		if row, ok := byDate[date]; ok {
			row.Contributions[strategy] = pnl
		}
	}
	return p, contribRows.Err()
}
