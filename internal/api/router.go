package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/markethunt/backend/internal/api/handlers"
	"github.com/wonny/markethunt/backend/internal/metrics"
	"github.com/wonny/markethunt/backend/pkg/database"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

// HealthChecker is satisfied by *database.DB
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// RouterOptions configures the optional parts of the router
type RouterOptions struct {
	RateLimit      float64 // requests per second across /api
	RateBurst      int
	MetricsEnabled bool
	DB             HealthChecker        // nil: /health skips the database check
	Jobs           handlers.JobRegistry // nil: /api/scheduler/jobs is not served
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(calendarHandler *handlers.CalendarHandler, opts RouterOptions, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(opts.DB)).Methods("GET")

	// Prometheus
	if opts.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()
	if opts.RateLimit > 0 {
		api.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)))
	}

	// Rebalance calendar endpoints
	api.HandleFunc("/rebalance/calendar", calendarHandler.GetCalendar).Methods("GET")
	api.HandleFunc("/rebalance/calendar", calendarHandler.Generate).Methods("POST")

	// Scheduler status
	if opts.Jobs != nil {
		schedulerHandler := handlers.NewSchedulerHandler(opts.Jobs)
		api.HandleFunc("/scheduler/jobs", schedulerHandler.ListJobs).Methods("GET")
		api.HandleFunc("/scheduler/jobs/{name}/history", schedulerHandler.GetJobHistory).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	// mux skips r.Use middleware when nothing matches, so wrap these explicitly
	r.NotFoundHandler = loggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	}))
	r.MethodNotAllowedHandler = loggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}))

	return r
}

// healthCheckHandler returns server health status with database pool stats
func healthCheckHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{
			"status":  "ok",
			"service": "markethunt-api",
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			health, err := db.HealthCheck(ctx)
			if err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
			body["database"] = health
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

// statusRecorder captures the response code for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			duration := time.Since(start)

			// route template, or "" for 404/405
			route := ""
			if cur := mux.CurrentRoute(r); cur != nil {
				if tmpl, err := cur.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			metrics.ObserveHTTPRequest(r.Method, route, rec.status, duration)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": duration,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects requests once the shared token bucket is empty
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
