package tradingdays

import (
	"context"
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/metrics"
	"github.com/wonny/markethunt/backend/pkg/logger"
	"github.com/wonny/markethunt/backend/pkg/redis"
)

// CachedSource caches another Source's results in Redis as YYYY-MM-DD arrays.
// Cache failures are logged and fall through to the wrapped source.
type CachedSource struct {
	source Source
	cache  *redis.Cache
	code   string
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedSource wraps source. code only namespaces the cache key.
func NewCachedSource(source Source, cache *redis.Cache, code string, ttl time.Duration, log *logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &CachedSource{
		source: source,
		cache:  cache,
		code:   code,
		ttl:    ttl,
		logger: log.WithComponent("tradingdays"),
	}
}

func (c *CachedSource) key(from, to time.Time) string {
	return redis.TradingDatesKey(c.code, calendar.FormatDate(from), calendar.FormatDate(to))
}

// TradingDates implements Source
func (c *CachedSource) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	key := c.key(from, to)

	var cached []string
	found, err := c.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.ObserveCacheLookup(metrics.ResultError)
		c.logger.WithError(err).WithField("key", key).Warn("Trading date cache read failed")
	case found:
		dates, perr := calendar.ParseDates(cached)
		if perr == nil {
			metrics.ObserveCacheLookup(metrics.CacheHit)
			return dates, nil
		}
		metrics.ObserveCacheLookup(metrics.ResultError)
		c.logger.WithError(perr).WithField("key", key).Warn("Corrupt trading date cache entry")
	default:
		metrics.ObserveCacheLookup(metrics.CacheMiss)
	}

	dates, err := c.source.TradingDates(ctx, from, to)
	if err != nil {
		return nil, err
	}

	values := make([]string, len(dates))
	for i, d := range dates {
		values[i] = calendar.FormatDate(d)
	}
	if err := c.cache.Set(ctx, key, values, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Trading date cache write failed")
	}

	return dates, nil
}

// Invalidate drops the cached entry for one range
func (c *CachedSource) Invalidate(ctx context.Context, from, to time.Time) error {
	return c.cache.Delete(ctx, c.key(from, to))
}
