package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/tradingdays"
	"github.com/wonny/markethunt/backend/pkg/config"
	"github.com/wonny/markethunt/backend/pkg/database"
	"github.com/wonny/markethunt/backend/pkg/logger"
	"github.com/wonny/markethunt/backend/pkg/redis"
)

// cachePrefix namespaces every Redis key written by this service
const cachePrefix = "markethunt"

// store is the price store connection shared by the commands
type store struct {
	db     *database.DB
	redis  *redis.Client
	repo   *tradingdays.Repository
	source *tradingdays.CachedSource
}

// openStore connects PostgreSQL and Redis and builds the cached trading date source.
// code overrides TRADING_CALENDAR_CODE when not empty.
// An unreachable Redis is logged and replaced by a disabled cache.
func openStore(ctx context.Context, cfg *config.Config, code string, log *logger.Logger) (*store, error) {
	if code == "" {
		code = cfg.Calendar.Code
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Connected to database")

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, trading date cache disabled")
		rc = redis.Wrap(nil)
	}

	cache := redis.NewCache(rc, cachePrefix)
	repo := tradingdays.NewRepository(db.Pool, code)

	return &store{
		db:     db,
		redis:  rc,
		repo:   repo,
		source: tradingdays.NewCachedSource(repo, cache, code, cfg.Calendar.CacheTTL, log),
	}, nil
}

// Close releases the store connections
func (s *store) Close() {
	if err := s.redis.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close redis: %v\n", err)
	}
	s.db.Close()
}

// newCLILogger logs to stderr so stdout stays clean for command output.
// Only warnings are shown unless --verbose is set.
func newCLILogger(cfg *config.Config) *logger.Logger {
	if verbose {
		cfg.LogLevel = "debug"
	} else {
		cfg.LogLevel = "warn"
	}
	return logger.NewWithWriter(cfg, os.Stderr)
}

// resolveSelection parses the frequency and date flags, falling back to the
// REBALANCE_FREQUENCY / REBALANCE_DATE configuration for empty values
func resolveSelection(cfg *config.Config, freqFlag, dateFlag string) (calendar.Frequency, calendar.SelectionPolicy, error) {
	if freqFlag == "" {
		freqFlag = cfg.Calendar.Frequency
	}
	if dateFlag == "" {
		dateFlag = cfg.Calendar.Date
	}

	freq, err := calendar.ParseFrequency(freqFlag)
	if err != nil {
		return 0, 0, err
	}
	policy, err := calendar.ParsePolicy(dateFlag)
	if err != nil {
		return 0, 0, err
	}
	return freq, policy, nil
}

// parseRange parses optional --from/--to flags; empty values stay zero
func parseRange(fromFlag, toFlag string) (from, to time.Time, err error) {
	if fromFlag != "" {
		if from, err = calendar.ParseDate(fromFlag); err != nil {
			return from, to, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if toFlag != "" {
		if to, err = calendar.ParseDate(toFlag); err != nil {
			return from, to, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return from, to, nil
}
