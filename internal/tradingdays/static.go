package tradingdays

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wonny/markethunt/backend/internal/calendar"
)

// StaticSource serves trading dates held in memory
type StaticSource struct {
	dates []time.Time
}

// NewStaticSource normalizes dates (sorted, distinct) and keeps them
func NewStaticSource(dates []time.Time) *StaticSource {
	return &StaticSource{dates: calendar.Normalize(dates)}
}

// LoadFile reads trading dates from path: either a JSON array of
// YYYY-MM-DD strings or one date per line (blank lines and # comments skipped).
func LoadFile(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	values, err := parseDateList(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dates, err := calendar.ParseDates(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewStaticSource(dates), nil
}

func parseDateList(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var values []string
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, fmt.Errorf("parse JSON date list: %w", err)
		}
		return values, nil
	}

	var values []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// tolerate CSV exports: first column is the date
		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		values = append(values, line)
	}
	return values, scanner.Err()
}

// Dates returns every date held by the source
func (s *StaticSource) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// TradingDates implements Source. A zero from or to leaves that side open.
func (s *StaticSource) TradingDates(_ context.Context, from, to time.Time) ([]time.Time, error) {
	lo, hi := calendar.Date(from), calendar.Date(to)

	out := make([]time.Time, 0, len(s.dates))
	for _, d := range s.dates {
		if !from.IsZero() && d.Before(lo) {
			continue
		}
		if !to.IsZero() && d.After(hi) {
			break
		}
		out = append(out, d)
	}
	return out, nil
}
