package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/tradingdays"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

// Rebalancer is invoked on every rebalance date of a replay.
// Portfolio valuation and trade execution live behind this interface.
type Rebalancer interface {
	Rebalance(ctx context.Context, date time.Time, info RebalanceInfo) error
}

// RebalancerFunc adapts a function to Rebalancer
type RebalancerFunc func(ctx context.Context, date time.Time, info RebalanceInfo) error

// Rebalance implements Rebalancer
func (f RebalancerFunc) Rebalance(ctx context.Context, date time.Time, info RebalanceInfo) error {
	return f(ctx, date, info)
}

// RebalanceInfo describes the rebalance being triggered
type RebalanceInfo struct {
	Period      calendar.PeriodKey
	Index       int // 0-based position among the replay's rebalance dates
	Total       int
	TradingDay  int // 0-based position among the replay's trading dates
	TradingDays int
}

// Engine replays trading dates day by day and triggers a rebalance on
// every date of the generated calendar
// ⭐ SSOT: 백테스팅 리플레이 루프는 여기서만
type Engine struct {
	source     tradingdays.Source
	rebalancer Rebalancer
	logger     *logger.Logger
}

// Config holds replay configuration
type Config struct {
	StartDate time.Time
	EndDate   time.Time
	Frequency calendar.Frequency
	Policy    calendar.SelectionPolicy
}

// Result holds replay results
type Result struct {
	Config         Config
	Duration       time.Duration
	TradingDays    int
	RebalanceDates []time.Time
	RebalanceCount int // successful rebalances
	Failed         []Failure
}

// Failure records a rebalance that returned an error
type Failure struct {
	Date  time.Time
	Error string
}

// NewEngine creates a new replay engine
func NewEngine(source tradingdays.Source, rebalancer Rebalancer, log *logger.Logger) *Engine {
	return &Engine{
		source:     source,
		rebalancer: rebalancer,
		logger:     log.WithComponent("backtest"),
	}
}

// Run executes a replay. Rebalancer errors are recorded and the replay
// continues; context cancellation stops it with ctx.Err().
func (e *Engine) Run(ctx context.Context, config Config) (*Result, error) {
	if config.EndDate.Before(config.StartDate) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			calendar.FormatDate(config.EndDate), calendar.FormatDate(config.StartDate))
	}
	if _, err := config.Frequency.KeyFunc(); err != nil {
		return nil, err
	}
	if _, err := config.Policy.Index(0); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"start_date": calendar.FormatDate(config.StartDate),
		"end_date":   calendar.FormatDate(config.EndDate),
		"frequency":  config.Frequency.String(),
		"policy":     config.Policy.String(),
	}).Info("Starting replay")

	startTime := time.Now()

	dates, err := e.source.TradingDates(ctx, config.StartDate, config.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load trading dates: %w", err)
	}
	dates = calendar.Normalize(dates)

	// Calendar is generated once per run, then consulted by membership
	periods, err := calendar.Periods(dates, config.Frequency, config.Policy)
	if err != nil {
		return nil, err
	}
	rebalanceDates := calendar.FromPeriods(periods)
	periodOf := make(map[time.Time]calendar.PeriodKey, len(periods))
	for _, p := range periods {
		periodOf[p.Selected] = p.Key
	}

	result := &Result{
		Config:         config,
		TradingDays:    len(dates),
		RebalanceDates: rebalanceDates.Sorted(),
		Failed:         make([]Failure, 0),
	}

	index := 0
	for i, day := range dates {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(startTime)
			return result, err
		}

		if !rebalanceDates.Contains(day) {
			continue
		}

		info := RebalanceInfo{
			Period:      periodOf[day],
			Index:       index,
			Total:       rebalanceDates.Len(),
			TradingDay:  i,
			TradingDays: len(dates),
		}
		index++

		if err := e.rebalancer.Rebalance(ctx, day, info); err != nil {
			e.logger.WithDate("date", day).WithError(err).Warn("Rebalance failed")
			result.Failed = append(result.Failed, Failure{Date: day, Error: err.Error()})
			continue
		}
		result.RebalanceCount++
	}

	result.Duration = time.Since(startTime)

	e.logger.WithFields(map[string]interface{}{
		"duration":     result.Duration.Seconds(),
		"trading_days": result.TradingDays,
		"rebalances":   result.RebalanceCount,
		"failed":       len(result.Failed),
	}).Info("Replay completed")

	return result, nil
}
