package market

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/aristath/deepfolio/internal/database"
	"github.com/aristath/deepfolio/internal/utils"
	"github.com/rs/zerolog"
)

// BarSource is anything that can list bars for one symbol.
type BarSource interface {
	List(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// BarRepository stores OHLCV bars in the history database.
type BarRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewBarRepository creates a repository over a migrated history database.
func NewBarRepository(db *sql.DB, log zerolog.Logger) *BarRepository {
	return &BarRepository{
		db:  db,
		log: log.With().Str("component", "bar_repository").Logger(),
	}
}

// Upsert inserts bars, replacing existing rows with the same symbol and time.
func (r *BarRepository) Upsert(ctx context.Context, bars []Bar) (int64, error) {
	done := utils.MeasureDBQuery("upsert_bars", r.log)
	var written int64

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bars (symbol, ts, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(symbol, ts) DO UPDATE SET
				open = excluded.open,
				high = excluded.high,
				low = excluded.low,
				close = excluded.close,
				volume = excluded.volume
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			if b.Symbol == "" {
				return fmt.Errorf("bar at %s has no symbol", b.Time)
			}
			if math.IsNaN(b.Close) || b.Close <= 0 {
				return fmt.Errorf("%w: %s close at %s is %v", ErrInvalidPrice, b.Symbol, b.Time, b.Close)
			}
			if _, err := stmt.ExecContext(ctx, b.Symbol, b.Time.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				return fmt.Errorf("failed to upsert bar %s@%s: %w", b.Symbol, b.Time, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	done(written)
	return written, nil
}

// List returns bars for symbol in ascending time order. Zero from/to leave
// that side of the range open.
func (r *BarRepository) List(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if !from.IsZero() {
		lo = from.Unix()
	}
	if !to.IsZero() {
		hi = to.Unix()
	}

	done := utils.MeasureDBQuery("list_bars", r.log)
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		b := Bar{Symbol: symbol}
		var ts int64
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		b.Time = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	done(int64(len(bars)))
	return bars, nil
}

// Symbols returns every stored symbol, sorted.
func (r *BarRepository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT symbol FROM bars ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
