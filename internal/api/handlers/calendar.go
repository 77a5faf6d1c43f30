package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/rebalance"
	"github.com/wonny/markethunt/backend/internal/tradingdays"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

// maxBodyBytes caps POST bodies (about 40 years of daily dates fit comfortably)
const maxBodyBytes = 1 << 20

// CalendarDefaults are applied when a request omits frequency or date
type CalendarDefaults struct {
	Frequency calendar.Frequency
	Policy    calendar.SelectionPolicy
}

// CalendarHandler serves rebalance calendars
// ⭐ SSOT: 리밸런싱 캘린더 API 핸들러는 이 구조체에서만
type CalendarHandler struct {
	service  *rebalance.Service
	defaults CalendarDefaults
	logger   *logger.Logger
	now      func() time.Time
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(service *rebalance.Service, defaults CalendarDefaults, log *logger.Logger) *CalendarHandler {
	return &CalendarHandler{
		service:  service,
		defaults: defaults,
		logger:   log.WithComponent("api"),
		now:      time.Now,
	}
}

// GetCalendar returns the rebalance calendar over stored trading dates
// GET /api/rebalance/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD&frequency=monthly&date=first
func (h *CalendarHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	freq, policy, err := h.selection(q.Get("frequency"), q.Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Default range: trailing one year ending today
	from, to := tradingdays.TrailingYear(h.now())
	if v := q.Get("to"); v != "" {
		if to, err = calendar.ParseDate(v); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
		from = to.AddDate(-1, 0, 0)
	}
	if v := q.Get("from"); v != "" {
		if from, err = calendar.ParseDate(v); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
	}

	schedule, err := h.service.Schedule(r.Context(), rebalance.Request{
		From:      from,
		To:        to,
		Frequency: freq,
		Policy:    policy,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, schedule)
}

// GenerateRequest is the body of POST /api/rebalance/calendar
type GenerateRequest struct {
	Dates     []string `json:"dates"`
	Frequency string   `json:"frequency"` // weekly, monthly, quarterly, yearly
	Date      string   `json:"date"`      // first, mid, last
}

// Generate builds a calendar over caller-supplied trading dates
// POST /api/rebalance/calendar
func (h *CalendarHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	freq, policy, err := h.selection(req.Frequency, req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	dates, err := calendar.ParseDates(req.Dates)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedule, err := h.service.FromDates(dates, freq, policy)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, schedule)
}

// selection resolves the frequency and policy, falling back to the defaults for empty values
func (h *CalendarHandler) selection(freqStr, policyStr string) (calendar.Frequency, calendar.SelectionPolicy, error) {
	freq, policy := h.defaults.Frequency, h.defaults.Policy

	if freqStr != "" {
		f, err := calendar.ParseFrequency(freqStr)
		if err != nil {
			return 0, 0, err
		}
		freq = f
	}
	if policyStr != "" {
		p, err := calendar.ParsePolicy(policyStr)
		if err != nil {
			return 0, 0, err
		}
		policy = p
	}

	return freq, policy, nil
}

func (h *CalendarHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case calendar.IsConfigError(err), errors.Is(err, rebalance.ErrInvalidRange):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tradingdays.ErrNoTradingDates):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Failed to build rebalance calendar")
		respondError(w, http.StatusInternalServerError, "Failed to build rebalance calendar")
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
