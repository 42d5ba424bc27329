package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
)

// barColumns is the list of columns for the bars table
// Column order must match scanBar() expectations
const barColumns = `symbol, timeframe, ts_ms, open, high, low, close, volume`

// SQLiteBarRepository is the SQLite-backed BarRepository for market.db.
// Malformed bars are rejected at this boundary so the analytical core only
// ever sees validated series.
type SQLiteBarRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteBarRepository creates a new bar repository
func NewSQLiteBarRepository(db *sql.DB, log zerolog.Logger) *SQLiteBarRepository {
	return &SQLiteBarRepository{
		db:  db,
		log: log.With().Str("repo", "bars").Logger(),
	}
}

// LastN returns the most recent n bars ascending by timestamp
func (r *SQLiteBarRepository) LastN(ctx context.Context, symbol string, tf domain.Timeframe, n int) ([]domain.Bar, error) {
	if n <= 0 {
		return nil, nil
	}

	query := "SELECT " + barColumns + ` FROM bars
		WHERE symbol = ? AND timeframe = ?
		ORDER BY ts_ms DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, normalizeSymbol(symbol), string(tf), n)
	if err != nil {
		return nil, fmt.Errorf("failed to query last %d bars: %w", n, err)
	}
	defer rows.Close()

	bars, err := collectBars(rows)
	if err != nil {
		return nil, err
	}

	// Query returned newest first; flip to ascending
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// BarsBetween returns bars with fromMS <= ts_ms <= toMS ascending by timestamp
func (r *SQLiteBarRepository) BarsBetween(ctx context.Context, symbol string, tf domain.Timeframe, fromMS, toMS int64) ([]domain.Bar, error) {
	query := "SELECT " + barColumns + ` FROM bars
		WHERE symbol = ? AND timeframe = ? AND ts_ms >= ? AND ts_ms <= ?
		ORDER BY ts_ms ASC`

	rows, err := r.db.QueryContext(ctx, query, normalizeSymbol(symbol), string(tf), fromMS, toMS)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars between %d and %d: %w", fromMS, toMS, err)
	}
	defer rows.Close()

	return collectBars(rows)
}

// LastTS returns the newest stored timestamp, nil when no bars exist
func (r *SQLiteBarRepository) LastTS(ctx context.Context, symbol string, tf domain.Timeframe) (*int64, error) {
	var ts sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		"SELECT MAX(ts_ms) FROM bars WHERE symbol = ? AND timeframe = ?",
		normalizeSymbol(symbol), string(tf),
	).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("failed to query last bar timestamp: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	v := ts.Int64
	return &v, nil
}

// UpsertBar inserts or replaces a single bar
func (r *SQLiteBarRepository) UpsertBar(ctx context.Context, symbol string, tf domain.Timeframe, bar domain.Bar) error {
	return r.UpsertBars(ctx, symbol, tf, []domain.Bar{bar})
}

// UpsertBars inserts or replaces a batch of bars in one transaction.
// The batch must be ascending by timestamp and satisfy the OHLC invariant.
func (r *SQLiteBarRepository) UpsertBars(ctx context.Context, symbol string, tf domain.Timeframe, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	if !tf.Valid() {
		return fmt.Errorf("unknown timeframe %q", tf)
	}
	if err := domain.ValidateBars(bars); err != nil {
		return fmt.Errorf("rejected bar batch for %s %s: %w", symbol, tf, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, timeframe, ts_ms, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare bar upsert: %w", err)
	}
	defer stmt.Close()

	sym := normalizeSymbol(symbol)
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, sym, string(tf), b.TS, b.Open, b.High, b.Low, b.Close, nullFloat64(b.Volume)); err != nil {
			return fmt.Errorf("failed to upsert bar %s %s @%d: %w", sym, tf, b.TS, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bar upsert: %w", err)
	}

	r.log.Debug().Str("symbol", sym).Str("timeframe", string(tf)).Int("bars", len(bars)).Msg("Upserted bars")
	return nil
}

// Count returns the number of stored bars for (symbol, timeframe)
func (r *SQLiteBarRepository) Count(ctx context.Context, symbol string, tf domain.Timeframe) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bars WHERE symbol = ? AND timeframe = ?",
		normalizeSymbol(symbol), string(tf),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}
	return count, nil
}

func collectBars(rows *sql.Rows) ([]domain.Bar, error) {
	var bars []domain.Bar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}
	return bars, nil
}

func scanBar(rows *sql.Rows) (domain.Bar, error) {
	var (
		bar       domain.Bar
		symbol    string
		timeframe string
		volume    sql.NullFloat64
	)
	if err := rows.Scan(&symbol, &timeframe, &bar.TS, &bar.Open, &bar.High, &bar.Low, &bar.Close, &volume); err != nil {
		return domain.Bar{}, err
	}
	if volume.Valid {
		v := volume.Float64
		bar.Volume = &v
	}
	return bar, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func nullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
