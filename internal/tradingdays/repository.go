package tradingdays

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads trading dates from the daily price table
// ⭐ SSOT: 거래일 조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
	code string // empty: any stock with a price row
}

// NewRepository creates a repository. code restricts the calendar to the
// price rows of one stock (typically a benchmark ETF).
func NewRepository(pool *pgxpool.Pool, code string) *Repository {
	return &Repository{pool: pool, code: code}
}

// Code returns the stock code the calendar is restricted to
func (r *Repository) Code() string {
	return r.code
}

// TradingDates returns the distinct trade dates between from and to
func (r *Repository) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM data.daily_prices
		WHERE trade_date BETWEEN $1 AND $2
		  AND ($3 = '' OR stock_code = $3)
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to, r.code)
	if err != nil {
		return nil, fmt.Errorf("query trading dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trading date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Bounds returns the earliest and latest trade dates available
func (r *Repository) Bounds(ctx context.Context) (time.Time, time.Time, error) {
	query := `
		SELECT MIN(trade_date), MAX(trade_date)
		FROM data.daily_prices
		WHERE ($1 = '' OR stock_code = $1)
	`

	var first, last *time.Time
	if err := r.pool.QueryRow(ctx, query, r.code).Scan(&first, &last); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("query trading date bounds: %w", err)
	}
	if first == nil || last == nil {
		return time.Time{}, time.Time{}, ErrNoTradingDates
	}
	return *first, *last, nil
}
