package simconfig

import (
	"fmt"
	"regexp"

	"github.com/wonny/markethunt/backend/internal/calendar"
)

// ValidationError 검증 실패 (실행 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var stockCodePattern = regexp.MustCompile(`^[0-9A-Z]{6}$`)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.SimulationID == "" {
		return ValidationError{"meta.simulation_id", "required"}
	}

	// === Period ===
	start, err := calendar.ParseDate(cfg.Period.Start)
	if err != nil {
		return ValidationError{"period.start", "must be YYYY-MM-DD"}
	}
	end, err := calendar.ParseDate(cfg.Period.End)
	if err != nil {
		return ValidationError{"period.end", "must be YYYY-MM-DD"}
	}
	if end.Before(start) {
		return ValidationError{"period", "start must be on or before end"}
	}

	// === Rebalance ===
	// 알 수 없는 값은 디코딩 단계에서 실패, 여기서는 누락만 검사
	if !cfg.Rebalance.Frequency.Valid() {
		return ValidationError{"rebalance.frequency", "required (weekly, monthly, quarterly, yearly)"}
	}
	if !cfg.Rebalance.Date.Valid() {
		return ValidationError{"rebalance.date", "required (first, mid, last)"}
	}

	// === Calendar ===
	if cfg.Calendar.Code != "" && !stockCodePattern.MatchString(cfg.Calendar.Code) {
		return ValidationError{"calendar.code", fmt.Sprintf("must be a 6-character stock code, got %q", cfg.Calendar.Code)}
	}

	return nil
}
