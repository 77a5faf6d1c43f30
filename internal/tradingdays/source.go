// Package tradingdays provides the ascending list of trading dates the
// rebalance calendar is built from.
package tradingdays

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
)

// ErrNoTradingDates is returned when a requested range holds no trading dates
var ErrNoTradingDates = errors.New("no trading dates in range")

// Source returns the trading dates between from and to inclusive, ascending
type Source interface {
	TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// TrailingYear returns the default lookup window: one year back from the
// calendar date of now. The API and the cache warm job share it so that
// default requests land on the warmed cache key.
func TrailingYear(now time.Time) (from, to time.Time) {
	to = calendar.Date(now)
	return to.AddDate(-1, 0, 0), to
}
