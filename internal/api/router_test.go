package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/markethunt/backend/internal/api/handlers"
	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/metrics"
	"github.com/wonny/markethunt/backend/internal/rebalance"
	"github.com/wonny/markethunt/backend/internal/scheduler"
	"github.com/wonny/markethunt/backend/internal/tradingdays"
	"github.com/wonny/markethunt/backend/pkg/database"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

func weekdays(from, to string) []time.Time {
	start, _ := calendar.ParseDate(from)
	end, _ := calendar.ParseDate(to)

	var out []time.Time
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			out = append(out, cur)
		}
	}
	return out
}

func newTestRouter(t *testing.T, opts RouterOptions) http.Handler {
	t.Helper()
	log := logger.Nop()
	// 2025-01-01 is a KRX holiday
	dates := weekdays("2025-01-02", "2025-06-30")
	svc := rebalance.NewService(tradingdays.NewStaticSource(dates), log)
	h := handlers.NewCalendarHandler(svc, handlers.CalendarDefaults{
		Frequency: calendar.Monthly,
		Policy:    calendar.Last,
	}, log)
	return NewRouter(h, opts, log)
}

type scheduleBody struct {
	Frequency   string   `json:"frequency"`
	Date        string   `json:"date"`
	TradingDays int      `json:"trading_days"`
	Dates       []string `json:"dates"`
	Periods     []struct {
		Period      string `json:"period"`
		TradingDays int    `json:"trading_days"`
		Selected    string `json:"selected"`
	} `json:"periods"`
	Error string `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, scheduleBody) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out scheduleBody
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestGetCalendar(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantDates  []string
		wantError  string
	}{
		{
			name:       "monthly first",
			target:     "/api/rebalance/calendar?from=2025-01-01&to=2025-02-28&frequency=monthly&date=first",
			wantStatus: http.StatusOK,
			wantDates:  []string{"2025-01-02", "2025-02-03"},
		},
		{
			name:       "defaults to configured monthly last",
			target:     "/api/rebalance/calendar?from=2025-01-01&to=2025-02-28",
			wantStatus: http.StatusOK,
			wantDates:  []string{"2025-01-31", "2025-02-28"},
		},
		{
			name:       "quarterly mid",
			target:     "/api/rebalance/calendar?from=2025-01-01&to=2025-06-30&frequency=quarterly&date=mid",
			wantStatus: http.StatusOK,
			wantDates:  []string{"2025-02-14", "2025-05-15"},
		},
		{
			name:       "unknown frequency",
			target:     "/api/rebalance/calendar?from=2025-01-01&to=2025-02-28&frequency=daily",
			wantStatus: http.StatusBadRequest,
			wantError:  "daily",
		},
		{
			name:       "unknown policy",
			target:     "/api/rebalance/calendar?from=2025-01-01&to=2025-02-28&date=median",
			wantStatus: http.StatusBadRequest,
			wantError:  "median",
		},
		{
			name:       "bad date",
			target:     "/api/rebalance/calendar?from=2025/01/01&to=2025-02-28",
			wantStatus: http.StatusBadRequest,
			wantError:  "from",
		},
		{
			name:       "reversed range",
			target:     "/api/rebalance/calendar?from=2025-03-01&to=2025-02-28",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid date range",
		},
		{
			name:       "no trading dates",
			target:     "/api/rebalance/calendar?from=2024-01-01&to=2024-06-30",
			wantStatus: http.StatusNotFound,
			wantError:  "no trading dates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, router, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantDates != nil {
				assert.Equal(t, tt.wantDates, body.Dates)
			}
			if tt.wantError != "" {
				assert.Contains(t, body.Error, tt.wantError)
			}
		})
	}
}

func TestGetCalendar_Periods(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	rec, body := do(t, router, http.MethodGet,
		"/api/rebalance/calendar?from=2025-01-06&to=2025-01-17&frequency=weekly&date=mid", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "weekly", body.Frequency)
	assert.Equal(t, "mid", body.Date)
	assert.Equal(t, 10, body.TradingDays)
	require.Len(t, body.Periods, 2)
	assert.Equal(t, "2025-W02", body.Periods[0].Period)
	assert.Equal(t, 5, body.Periods[0].TradingDays)
	assert.Equal(t, "2025-01-08", body.Periods[0].Selected)
	assert.Equal(t, []string{"2025-01-08", "2025-01-15"}, body.Dates)
}

func TestPostCalendar(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	rec, body := do(t, router, http.MethodPost, "/api/rebalance/calendar",
		`{"dates":["2025-01-10","2025-01-06","2025-01-07","2025-01-08","2025-01-09"],"frequency":"weekly","date":"last"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"2025-01-10"}, body.Dates)

	// empty input is not an error
	rec, body = do(t, router, http.MethodPost, "/api/rebalance/calendar", `{"dates":[],"frequency":"yearly","date":"first"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body.Dates)
	assert.Empty(t, body.Periods)

	rec, body = do(t, router, http.MethodPost, "/api/rebalance/calendar", `{"dates":["2025-01-06"],"date":"median"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error, "median")

	rec, body = do(t, router, http.MethodPost, "/api/rebalance/calendar", `{"dates":["01/06/2025"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error, "01/06/2025")

	rec, _ = do(t, router, http.MethodPost, "/api/rebalance/calendar", `{"dates":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) (*database.HealthStatus, error) {
	if s.err != nil {
		return &database.HealthStatus{Error: s.err.Error()}, s.err
	}
	return &database.HealthStatus{
		Healthy: true,
		Stats:   database.PoolStats{MaxConns: 10, TotalConns: 2, IdleConns: 2},
	}, nil
}

func TestHealth(t *testing.T) {
	rec, _ := do(t, newTestRouter(t, RouterOptions{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotContains(t, rec.Body.String(), "database")

	type healthBody struct {
		Status   string                `json:"status"`
		Database database.HealthStatus `json:"database"`
	}

	rec, _ = do(t, newTestRouter(t, RouterOptions{DB: stubHealth{}}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var ok healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, "ok", ok.Status)
	assert.True(t, ok.Database.Healthy)
	assert.Equal(t, int32(10), ok.Database.Stats.MaxConns)
	assert.Equal(t, int32(2), ok.Database.Stats.TotalConns)

	rec, _ = do(t, newTestRouter(t, RouterOptions{DB: stubHealth{err: errors.New("connection refused")}}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var degraded healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &degraded))
	assert.Equal(t, "degraded", degraded.Status)
	assert.False(t, degraded.Database.Healthy)
	assert.Equal(t, "connection refused", degraded.Database.Error)
}

type stubJobs struct {
	next    time.Time
	history []scheduler.JobResult
}

func (s stubJobs) GetAllJobs() []string { return []string{"trading_dates_warm"} }

func (s stubJobs) NextRun(string) (time.Time, error) { return s.next, nil }

func (s stubJobs) GetJobStats() map[string]scheduler.JobStats {
	return map[string]scheduler.JobStats{
		"trading_dates_warm": {
			JobName:      "trading_dates_warm",
			Schedule:     "0 30 18 * * MON-FRI",
			TotalRuns:    2,
			SuccessCount: 1,
			FailureCount: 1,
			SuccessRate:  0.5,
		},
	}
}

func (s stubJobs) GetJobHistory(name string) (*scheduler.JobHistory, error) {
	if name != "trading_dates_warm" {
		return nil, errors.New("job " + name + " not found")
	}
	return &scheduler.JobHistory{Results: s.history}, nil
}

func TestSchedulerJobs(t *testing.T) {
	next := time.Date(2025, 1, 6, 18, 30, 0, 0, time.UTC)
	router := newTestRouter(t, RouterOptions{Jobs: stubJobs{next: next}})

	rec, _ := do(t, router, http.MethodGet, "/api/scheduler/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Count int `json:"count"`
		Jobs  []struct {
			JobName     string    `json:"job_name"`
			Schedule    string    `json:"schedule"`
			TotalRuns   int       `json:"total_runs"`
			SuccessRate float64   `json:"success_rate"`
			NextRun     time.Time `json:"next_run"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "trading_dates_warm", body.Jobs[0].JobName)
	assert.Equal(t, "0 30 18 * * MON-FRI", body.Jobs[0].Schedule)
	assert.Equal(t, 2, body.Jobs[0].TotalRuns)
	assert.Equal(t, 0.5, body.Jobs[0].SuccessRate)
	assert.True(t, next.Equal(body.Jobs[0].NextRun))

	// not served without a scheduler
	rec, _ = do(t, newTestRouter(t, RouterOptions{}), http.MethodGet, "/api/scheduler/jobs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedulerJobHistory(t *testing.T) {
	router := newTestRouter(t, RouterOptions{Jobs: stubJobs{history: []scheduler.JobResult{
		{JobName: "trading_dates_warm", Attempts: 4, Success: false, Error: "db down"},
		{JobName: "trading_dates_warm", Attempts: 1, Success: true},
	}}})

	rec, _ := do(t, router, http.MethodGet, "/api/scheduler/jobs/trading_dates_warm/history", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Job     string                `json:"job"`
		Count   int                   `json:"count"`
		Results []scheduler.JobResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "trading_dates_warm", body.Job)
	require.Equal(t, 2, body.Count)
	assert.True(t, body.Results[0].Success, "newest first")
	assert.Equal(t, "db down", body.Results[1].Error)

	rec, out := do(t, router, http.MethodGet, "/api/scheduler/jobs/nope/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, out.Error, "not found")
}

func TestUnmatchedRoutes(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	rec, body := do(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", body.Error)

	rec, body = do(t, router, http.MethodDelete, "/api/rebalance/calendar", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", body.Error)
}

// only this test registers metrics; other tests observe into nil collectors
func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.Init(reg)

	router := newTestRouter(t, RouterOptions{})
	do(t, router, http.MethodGet, "/health", "")
	do(t, router, http.MethodGet, "/api/rebalance/calendar?from=2025-01-01&to=2025-01-31", "")
	do(t, router, http.MethodGet, "/nope", "")
	do(t, router, http.MethodDelete, "/api/rebalance/calendar", "")

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	durations := map[string]uint64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			switch f.GetName() {
			case "markethunt_http_requests_total":
				counts[labels["method"]+" "+labels["route"]+" "+labels["status"]] = m.GetCounter().GetValue()
			case "markethunt_http_request_duration_seconds":
				durations[labels["method"]+" "+labels["route"]] = m.GetHistogram().GetSampleCount()
			}
		}
	}

	assert.Equal(t, 1.0, counts["GET /health 200"])
	assert.Equal(t, 1.0, counts["GET /api/rebalance/calendar 200"])
	assert.Equal(t, 1.0, counts["GET unmatched 404"])
	assert.Equal(t, 1.0, counts["DELETE unmatched 405"])
	assert.Equal(t, uint64(1), durations["GET /api/rebalance/calendar"])
	assert.Equal(t, uint64(1), durations["DELETE unmatched"])
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, RouterOptions{RateLimit: 0.001, RateBurst: 2})
	target := "/api/rebalance/calendar?from=2025-01-01&to=2025-01-31"

	for i := 0; i < 2; i++ {
		rec, _ := do(t, router, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := do(t, router, http.MethodGet, target, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Rate limit exceeded", body.Error)

	// health is outside the limited subrouter
	rec, _ = do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, RouterOptions{MetricsEnabled: true}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(t, RouterOptions{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rebalance/calendar", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
