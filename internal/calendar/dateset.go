package calendar

import (
	"encoding/json"
	"sort"
	"time"
)

// DateSet is an unordered set of calendar dates.
// Members are stored as midnight UTC; lookups normalize their argument.
type DateSet struct {
	dates map[time.Time]struct{}
}

// NewDateSet builds a set from dates
func NewDateSet(dates ...time.Time) DateSet {
	s := DateSet{dates: make(map[time.Time]struct{}, len(dates))}
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

// Add inserts the calendar date of t
func (s *DateSet) Add(t time.Time) {
	if s.dates == nil {
		s.dates = make(map[time.Time]struct{})
	}
	s.dates[Date(t)] = struct{}{}
}

// Contains reports whether the calendar date of t is a member
func (s DateSet) Contains(t time.Time) bool {
	_, ok := s.dates[Date(t)]
	return ok
}

// Len returns the number of dates in the set
func (s DateSet) Len() int {
	return len(s.dates)
}

// Sorted returns the members in ascending order
func (s DateSet) Sorted() []time.Time {
	out := make([]time.Time, 0, len(s.dates))
	for d := range s.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Strings returns the members as sorted YYYY-MM-DD strings
func (s DateSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, d := range sorted {
		out[i] = FormatDate(d)
	}
	return out
}

// Equal reports whether both sets hold the same dates
func (s DateSet) Equal(other DateSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for d := range s.dates {
		if !other.Contains(d) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array of YYYY-MM-DD strings
func (s DateSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of YYYY-MM-DD strings
func (s *DateSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	dates, err := ParseDates(values)
	if err != nil {
		return err
	}
	*s = NewDateSet(dates...)
	return nil
}
