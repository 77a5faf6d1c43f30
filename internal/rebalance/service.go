package rebalance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/metrics"
	"github.com/wonny/markethunt/backend/internal/tradingdays"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

// ErrInvalidRange is returned when a request's date range is missing or reversed
var ErrInvalidRange = errors.New("invalid date range")

// Request asks for the rebalance dates of a trading date range
type Request struct {
	From      time.Time
	To        time.Time
	Frequency calendar.Frequency
	Policy    calendar.SelectionPolicy
}

// Schedule is the rebalance calendar for one request
type Schedule struct {
	Frequency   calendar.Frequency       `json:"frequency"`
	Policy      calendar.SelectionPolicy `json:"date"`
	From        string                   `json:"from,omitempty"`
	To          string                   `json:"to,omitempty"`
	TradingDays int                      `json:"trading_days"`
	Periods     []calendar.Period        `json:"periods"`
	Dates       calendar.DateSet         `json:"dates"`
}

// Service builds rebalance schedules from the trading date store
// ⭐ SSOT: 리밸런싱 일정 생성은 여기서만
type Service struct {
	source tradingdays.Source
	logger *logger.Logger
}

// NewService creates a schedule service backed by source
func NewService(source tradingdays.Source, log *logger.Logger) *Service {
	return &Service{source: source, logger: log.WithComponent("rebalance")}
}

// Schedule loads the trading dates of the requested range and generates
// the calendar. An empty range returns tradingdays.ErrNoTradingDates.
func (s *Service) Schedule(ctx context.Context, req Request) (*Schedule, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	start := time.Now()

	dates, err := s.source.TradingDates(ctx, req.From, req.To)
	if err != nil {
		metrics.ObserveGenerate(req.Frequency.String(), req.Policy.String(), metrics.ResultError, time.Since(start), 0)
		return nil, fmt.Errorf("load trading dates: %w", err)
	}
	if len(dates) == 0 {
		metrics.ObserveGenerate(req.Frequency.String(), req.Policy.String(), metrics.ResultError, time.Since(start), 0)
		return nil, fmt.Errorf("%s ~ %s: %w",
			calendar.FormatDate(req.From), calendar.FormatDate(req.To), tradingdays.ErrNoTradingDates)
	}

	schedule, err := s.build(dates, req.Frequency, req.Policy, start)
	if err != nil {
		return nil, err
	}
	schedule.From = calendar.FormatDate(req.From)
	schedule.To = calendar.FormatDate(req.To)

	return schedule, nil
}

// FromDates generates a schedule over caller-supplied trading dates.
// Empty input yields an empty schedule.
func (s *Service) FromDates(dates []time.Time, freq calendar.Frequency, policy calendar.SelectionPolicy) (*Schedule, error) {
	return s.build(dates, freq, policy, time.Now())
}

func (s *Service) build(dates []time.Time, freq calendar.Frequency, policy calendar.SelectionPolicy, start time.Time) (*Schedule, error) {
	periods, err := calendar.Periods(dates, freq, policy)
	if err != nil {
		metrics.ObserveGenerate(freq.String(), policy.String(), metrics.ResultError, time.Since(start), 0)
		return nil, err
	}

	set := calendar.FromPeriods(periods)
	tradingDays := 0
	for _, p := range periods {
		tradingDays += p.TradingDays()
	}

	metrics.ObserveGenerate(freq.String(), policy.String(), metrics.ResultSuccess, time.Since(start), set.Len())

	s.logger.WithFields(map[string]interface{}{
		"frequency":    freq.String(),
		"policy":       policy.String(),
		"trading_days": tradingDays,
		"periods":      len(periods),
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Debug("Rebalance calendar generated")

	return &Schedule{
		Frequency:   freq,
		Policy:      policy,
		TradingDays: tradingDays,
		Periods:     periods,
		Dates:       set,
	}, nil
}

func validate(req Request) error {
	if _, err := req.Frequency.KeyFunc(); err != nil {
		return err
	}
	if _, err := req.Policy.Index(0); err != nil {
		return err
	}
	if req.From.IsZero() || req.To.IsZero() {
		return fmt.Errorf("from and to dates are required: %w", ErrInvalidRange)
	}
	if req.From.After(req.To) {
		return fmt.Errorf("%s > %s: %w", calendar.FormatDate(req.From), calendar.FormatDate(req.To), ErrInvalidRange)
	}
	return nil
}
