package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// PeriodKey identifies the period a trading date belongs to.
// Year is the ISO year for weekly keys and the calendar year otherwise.
type PeriodKey struct {
	Frequency Frequency
	Year      int
	Index     int // ISO week, month, quarter; 0 for yearly
}

// String returns a label such as 2025-W02, 2025-01, 2025-Q1 or 2025
func (k PeriodKey) String() string {
	switch k.Frequency {
	case Weekly:
		return fmt.Sprintf("%04d-W%02d", k.Year, k.Index)
	case Monthly:
		return fmt.Sprintf("%04d-%02d", k.Year, k.Index)
	case Quarterly:
		return fmt.Sprintf("%04d-Q%d", k.Year, k.Index)
	case Yearly:
		return fmt.Sprintf("%04d", k.Year)
	}
	return fmt.Sprintf("%04d/%d", k.Year, k.Index)
}

// MarshalText implements encoding.TextMarshaler
func (k PeriodKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// KeyFunc maps a trading date to its period key
type KeyFunc func(date time.Time) PeriodKey

// ISO-8601 week: the last days of December can belong to week 1 of the
// next ISO year, and early January days to week 52/53 of the previous one.
func weekKey(date time.Time) PeriodKey {
	year, week := date.ISOWeek()
	return PeriodKey{Frequency: Weekly, Year: year, Index: week}
}

func monthKey(date time.Time) PeriodKey {
	return PeriodKey{Frequency: Monthly, Year: date.Year(), Index: int(date.Month())}
}

func quarterKey(date time.Time) PeriodKey {
	return PeriodKey{Frequency: Quarterly, Year: date.Year(), Index: (int(date.Month())-1)/3 + 1}
}

func yearKey(date time.Time) PeriodKey {
	return PeriodKey{Frequency: Yearly, Year: date.Year()}
}

// Period is one bucket of trading dates sharing a period key
type Period struct {
	Key      PeriodKey
	Dates    []time.Time
	Selected time.Time
}

// MarshalJSON renders the bucket as {period, trading_days, selected}
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Period      string `json:"period"`
		TradingDays int    `json:"trading_days"`
		Selected    string `json:"selected"`
	}{
		Period:      p.Key.String(),
		TradingDays: len(p.Dates),
		Selected:    FormatDate(p.Selected),
	})
}

// TradingDays returns the number of trading dates in the bucket
func (p Period) TradingDays() int {
	return len(p.Dates)
}

// Group buckets dates by key, in order of first appearance.
// Chronological order within a bucket follows the input order, so callers
// pass normalized dates.
func Group(dates []time.Time, key KeyFunc) []Period {
	periods := make([]Period, 0)
	index := make(map[PeriodKey]int)

	for _, d := range dates {
		k := key(d)
		i, ok := index[k]
		if !ok {
			i = len(periods)
			index[k] = i
			periods = append(periods, Period{Key: k})
		}
		periods[i].Dates = append(periods[i].Dates, d)
	}

	return periods
}
