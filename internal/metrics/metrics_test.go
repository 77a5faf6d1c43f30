package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)

	ObserveGenerate("monthly", "first", ResultSuccess, 3*time.Millisecond, 12)
	ObserveGenerate("monthly", "first", ResultSuccess, time.Millisecond, 12)
	ObserveGenerate("weekly", "median", ResultError, time.Millisecond, 0)
	ObserveCacheLookup(CacheHit)
	ObserveCacheLookup("")
	ObserveHTTPRequest("GET", "/api/rebalance/calendar", 200, 5*time.Millisecond)
	ObserveHTTPRequest("POST", "", 405, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(calendarGenerateTotal.WithLabelValues("monthly", "first", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(calendarGenerateTotal.WithLabelValues("weekly", "median", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(tradingDatesCacheTotal.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/rebalance/calendar", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", RouteUnmatched, "405")))
	assert.Equal(t, 2, testutil.CollectAndCount(httpRequestDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "markethunt_calendar_selected_dates")
	assert.Contains(t, names, "markethunt_calendar_generate_latency_seconds")
	assert.Contains(t, names, "markethunt_http_request_duration_seconds")

	// a second Init is a no-op
	Init(prometheus.NewRegistry())
}
