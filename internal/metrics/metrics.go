package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "markethunt_"

	ResultSuccess = "success"
	ResultError   = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	registerOnce sync.Once

	calendarGenerateTotal   *prometheus.CounterVec
	calendarGenerateLatency *prometheus.HistogramVec
	calendarSelectedDates   *prometheus.HistogramVec

	tradingDatesCacheTotal *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
)

// Init registers the metrics with reg (prometheus.DefaultRegisterer when nil).
// Observe* calls before Init are no-ops.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}

		calendarGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "calendar_generate_total",
				Help: "Rebalance calendar generations by frequency, policy and result",
			},
			[]string{"frequency", "policy", "result"},
		)
		calendarGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "calendar_generate_latency_seconds",
				Help:    "Rebalance calendar generation latency in seconds, including trading date lookup",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		calendarSelectedDates = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "calendar_selected_dates",
				Help:    "Number of rebalance dates selected per generation",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"frequency"},
		)
		tradingDatesCacheTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "trading_dates_cache_total",
				Help: "Trading date cache lookups by result",
			},
			[]string{"result"},
		)
		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route template and status code",
			},
			[]string{"method", "route", "status"},
		)
		httpRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		reg.MustRegister(
			calendarGenerateTotal,
			calendarGenerateLatency,
			calendarSelectedDates,
			tradingDatesCacheTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveGenerate records one calendar generation
func ObserveGenerate(frequency, policy, result string, duration time.Duration, selected int) {
	if result == "" {
		result = ResultSuccess
	}
	if calendarGenerateTotal != nil {
		calendarGenerateTotal.WithLabelValues(frequency, policy, result).Inc()
	}
	if calendarGenerateLatency != nil {
		calendarGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if calendarSelectedDates != nil && result == ResultSuccess {
		calendarSelectedDates.WithLabelValues(frequency).Observe(float64(selected))
	}
}

// ObserveCacheLookup records a trading date cache hit, miss or error
func ObserveCacheLookup(result string) {
	if result == "" {
		return
	}
	if tradingDatesCacheTotal != nil {
		tradingDatesCacheTotal.WithLabelValues(result).Inc()
	}
}

// RouteUnmatched labels requests that matched no route (404/405)
const RouteUnmatched = "unmatched"

// ObserveHTTPRequest records one API request. route is the mux path template,
// never the raw path, so label cardinality stays bounded.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = RouteUnmatched
	}
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpRequestDuration != nil {
		httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}
