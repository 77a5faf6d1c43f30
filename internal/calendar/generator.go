// Package calendar selects rebalance dates from a series of trading dates.
//
// Dates are bucketed by a frequency (weekly, monthly, quarterly, yearly) and
// one date per non-empty bucket is chosen by a selection policy (first, mid,
// last). Everything here is pure: no I/O, no package state, safe for
// concurrent use.
package calendar

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used on every boundary
const DateLayout = "2006-01-02"

// Date truncates t to its calendar date at midnight UTC.
// The calendar date is taken in t's own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trading date %q: %w", s, err)
	}
	return t, nil
}

// ParseDates parses a list of YYYY-MM-DD strings, failing on the first bad one
func ParseDates(values []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		t, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		dates = append(dates, t)
	}
	return dates, nil
}

// Normalize returns the distinct calendar dates of the input in ascending order.
// The input slice is not modified.
func Normalize(dates []time.Time) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, Date(d))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	// in-place dedupe over the sorted copy
	n := 0
	for i, d := range out {
		if i > 0 && d.Equal(out[n-1]) {
			continue
		}
		out[n] = d
		n++
	}
	return out[:n]
}

// Periods normalizes dates, buckets them by frequency and picks one date per
// bucket according to policy. Buckets are returned in chronological order.
// Unknown frequency or policy values fail with a *ConfigError before any work.
func Periods(dates []time.Time, freq Frequency, policy SelectionPolicy) ([]Period, error) {
	keyFn, err := freq.KeyFunc()
	if err != nil {
		return nil, err
	}
	if !policy.Valid() {
		return nil, policy.invalid()
	}

	periods := Group(Normalize(dates), keyFn)
	for i := range periods {
		idx, err := policy.Index(len(periods[i].Dates))
		if err != nil {
			return nil, err
		}
		periods[i].Selected = periods[i].Dates[idx]
	}

	return periods, nil
}

// Generate returns the set of rebalance dates for the given trading dates.
// Empty input yields an empty set.
func Generate(dates []time.Time, freq Frequency, policy SelectionPolicy) (DateSet, error) {
	periods, err := Periods(dates, freq, policy)
	if err != nil {
		return DateSet{}, err
	}
	return FromPeriods(periods), nil
}

// FromPeriods collects the selected date of every period
func FromPeriods(periods []Period) DateSet {
	set := NewDateSet()
	for _, p := range periods {
		set.Add(p.Selected)
	}
	return set
}
