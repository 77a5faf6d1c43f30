package calendar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFrequency is wrapped by ConfigError for unrecognized frequencies
	ErrUnknownFrequency = errors.New("unknown rebalance frequency")

	// ErrUnknownPolicy is wrapped by ConfigError for unrecognized selection policies
	ErrUnknownPolicy = errors.New("unknown rebalance date policy")
)

// ConfigError reports a frequency or policy value the calendar does not know.
// 기본값으로 대체하지 않고 즉시 실패
type ConfigError struct {
	Field string // rebalance_frequency, rebalance_date
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	var allowed []string
	switch {
	case errors.Is(e.Err, ErrUnknownFrequency):
		allowed = frequencyOrder
	case errors.Is(e.Err, ErrUnknownPolicy):
		allowed = policyOrder
	}
	if len(allowed) == 0 {
		return fmt.Sprintf("%s: invalid value %q", e.Field, e.Value)
	}
	return fmt.Sprintf("%s: invalid value %q (want one of: %s)", e.Field, e.Value, strings.Join(allowed, ", "))
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err was caused by an unknown frequency or policy
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// Frequency determines how trading dates are bucketed into periods.
// The zero value is not a valid frequency.
type Frequency int

const (
	Weekly Frequency = iota + 1
	Monthly
	Quarterly
	Yearly
)

var frequencyOrder = []string{"weekly", "monthly", "quarterly", "yearly"}

var frequencyByName = map[string]Frequency{
	"weekly":    Weekly,
	"monthly":   Monthly,
	"quarterly": Quarterly,
	"yearly":    Yearly,
}

// ParseFrequency converts weekly|monthly|quarterly|yearly (case-insensitive)
func ParseFrequency(s string) (Frequency, error) {
	f, ok := frequencyByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, &ConfigError{Field: "rebalance_frequency", Value: s, Err: ErrUnknownFrequency}
	}
	return f, nil
}

// Valid reports whether f is one of the four known frequencies
func (f Frequency) Valid() bool {
	return f >= Weekly && f <= Yearly
}

func (f Frequency) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
	return frequencyOrder[f-1]
}

// MarshalText implements encoding.TextMarshaler
func (f Frequency) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, f.invalid()
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// KeyFunc returns the period key extractor for f
func (f Frequency) KeyFunc() (KeyFunc, error) {
	switch f {
	case Weekly:
		return weekKey, nil
	case Monthly:
		return monthKey, nil
	case Quarterly:
		return quarterKey, nil
	case Yearly:
		return yearKey, nil
	}
	return nil, f.invalid()
}

func (f Frequency) invalid() error {
	return &ConfigError{Field: "rebalance_frequency", Value: f.String(), Err: ErrUnknownFrequency}
}

// SelectionPolicy picks the representative rebalance date of a period.
// The zero value is not a valid policy.
type SelectionPolicy int

const (
	First SelectionPolicy = iota + 1
	Mid
	Last
)

var policyOrder = []string{"first", "mid", "last"}

var policyByName = map[string]SelectionPolicy{
	"first": First,
	"mid":   Mid,
	"last":  Last,
}

// ParsePolicy converts first|mid|last (case-insensitive)
func ParsePolicy(s string) (SelectionPolicy, error) {
	p, ok := policyByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, &ConfigError{Field: "rebalance_date", Value: s, Err: ErrUnknownPolicy}
	}
	return p, nil
}

// Valid reports whether p is one of the three known policies
func (p SelectionPolicy) Valid() bool {
	return p >= First && p <= Last
}

func (p SelectionPolicy) String() string {
	if !p.Valid() {
		return fmt.Sprintf("SelectionPolicy(%d)", int(p))
	}
	return policyOrder[p-1]
}

// MarshalText implements encoding.TextMarshaler
func (p SelectionPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, p.invalid()
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *SelectionPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Index returns the position selected from a bucket of n dates.
// Mid uses n/2: even-length buckets take the element at/after the midpoint.
func (p SelectionPolicy) Index(n int) (int, error) {
	if !p.Valid() {
		return 0, p.invalid()
	}
	if n <= 0 {
		return -1, nil
	}
	switch p {
	case First:
		return 0, nil
	case Mid:
		return n / 2, nil
	default:
		return n - 1, nil
	}
}

func (p SelectionPolicy) invalid() error {
	return &ConfigError{Field: "rebalance_date", Value: p.String(), Err: ErrUnknownPolicy}
}
