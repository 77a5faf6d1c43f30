package simconfig

import (
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
)

// Config는 리밸런싱 시뮬레이션 요청 파일의 전체 설정
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Period    Period    `yaml:"period" json:"period"`
	Rebalance Rebalance `yaml:"rebalance" json:"rebalance"`
	Calendar  Calendar  `yaml:"calendar" json:"calendar"`
}

// Meta 메타 정보
type Meta struct {
	SimulationID string `yaml:"simulation_id" json:"simulation_id"`
	Version      string `yaml:"version" json:"version"`
}

// Period 시뮬레이션 기간 (YYYY-MM-DD)
type Period struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Rebalance 리밸런싱 주기와 날짜 선택 규칙
type Rebalance struct {
	Frequency calendar.Frequency       `yaml:"frequency" json:"frequency"`
	Date      calendar.SelectionPolicy `yaml:"date" json:"date"`
}

// Calendar 거래일 기준 종목 (비어 있으면 전체 종목)
type Calendar struct {
	Code string `yaml:"code" json:"code"`
}

// StartDate returns the parsed period start. Valid after Validate.
func (c *Config) StartDate() time.Time {
	t, _ := calendar.ParseDate(c.Period.Start)
	return t
}

// EndDate returns the parsed period end. Valid after Validate.
func (c *Config) EndDate() time.Time {
	t, _ := calendar.ParseDate(c.Period.End)
	return t
}
