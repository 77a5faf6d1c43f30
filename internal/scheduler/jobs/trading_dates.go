package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/tradingdays"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

// TradingDatesWarmJobName identifies the warm job in the scheduler
const TradingDatesWarmJobName = "trading_dates_warm"

// Warmer is a cached trading date source (*tradingdays.CachedSource)
type Warmer interface {
	tradingdays.Source
	Invalidate(ctx context.Context, from, to time.Time) error
}

// TradingDatesWarmJob refreshes the cached trading dates of the default API window
// after the day's prices are loaded
// ⭐ SSOT: 거래일 캐시 갱신 스케줄은 이 Job에서만
type TradingDatesWarmJob struct {
	source Warmer
	logger *logger.Logger
	now    func() time.Time
}

// NewTradingDatesWarmJob creates a new trading date warm job
func NewTradingDatesWarmJob(source Warmer, log *logger.Logger) *TradingDatesWarmJob {
	return &TradingDatesWarmJob{
		source: source,
		logger: log.WithComponent("scheduler").WithField("job", TradingDatesWarmJobName),
		now:    time.Now,
	}
}

// Name returns the job name
func (j *TradingDatesWarmJob) Name() string {
	return TradingDatesWarmJobName
}

// Schedule returns the cron schedule (weekdays 18:30, after the daily price load)
func (j *TradingDatesWarmJob) Schedule() string {
	return "0 30 18 * * MON-FRI"
}

// Run drops the cached window and reloads it from the store
func (j *TradingDatesWarmJob) Run(ctx context.Context) error {
	from, to := tradingdays.TrailingYear(j.now())

	if err := j.source.Invalidate(ctx, from, to); err != nil {
		return fmt.Errorf("invalidate trading dates %s ~ %s: %w",
			calendar.FormatDate(from), calendar.FormatDate(to), err)
	}

	dates, err := j.source.TradingDates(ctx, from, to)
	if err != nil {
		return fmt.Errorf("reload trading dates: %w", err)
	}

	fields := map[string]interface{}{
		"from":         calendar.FormatDate(from),
		"to":           calendar.FormatDate(to),
		"trading_days": len(dates),
	}
	if len(dates) == 0 {
		j.logger.WithFields(fields).Warn("No trading dates in warm window")
		return nil
	}

	fields["latest"] = calendar.FormatDate(dates[len(dates)-1])
	j.logger.WithFields(fields).Info("Trading date cache warmed")

	return nil
}
