package calendar

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		input   string
		want    Frequency
		wantErr bool
	}{
		{"weekly", Weekly, false},
		{"Monthly", Monthly, false},
		{" QUARTERLY ", Quarterly, false},
		{"yearly", Yearly, false},
		{"daily", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFrequency(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownFrequency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParseFrequency(t, got.String()))
		})
	}
}

func mustParseFrequency(t *testing.T, s string) Frequency {
	t.Helper()
	f, err := ParseFrequency(s)
	require.NoError(t, err)
	return f
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"first", "mid", "last", "FIRST"} {
		p, err := ParsePolicy(name)
		require.NoError(t, err, name)
		assert.True(t, p.Valid())
	}

	_, err := ParsePolicy("median")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "rebalance_date", cfgErr.Field)
	assert.Equal(t, "median", cfgErr.Value)
	assert.Equal(t, `rebalance_date: invalid value "median" (want one of: first, mid, last)`, err.Error())
}

func TestPolicyIndex(t *testing.T) {
	tests := []struct {
		policy SelectionPolicy
		n      int
		want   int
	}{
		{First, 5, 0},
		{Last, 5, 4},
		{Mid, 5, 2},
		{Mid, 4, 2},
		{Mid, 2, 1},
		{Mid, 1, 0},
		{Last, 1, 0},
	}
	for _, tt := range tests {
		got, err := tt.policy.Index(tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s n=%d", tt.policy, tt.n)
	}

	_, err := SelectionPolicy(0).Index(3)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestEnumText(t *testing.T) {
	type request struct {
		Frequency Frequency       `json:"rebalance_frequency"`
		Date      SelectionPolicy `json:"rebalance_date"`
	}

	var req request
	require.NoError(t, json.Unmarshal([]byte(`{"rebalance_frequency":"weekly","rebalance_date":"last"}`), &req))
	assert.Equal(t, Weekly, req.Frequency)
	assert.Equal(t, Last, req.Date)

	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rebalance_frequency":"weekly","rebalance_date":"last"}`, string(out))

	err = json.Unmarshal([]byte(`{"rebalance_frequency":"weekly","rebalance_date":"median"}`), &req)
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	_, err = json.Marshal(request{})
	assert.Error(t, err)
}

func TestPeriodKeyString(t *testing.T) {
	assert.Equal(t, "2025-W02", weekKey(d("2025-01-06")).String())
	assert.Equal(t, "2025-03", monthKey(d("2025-03-14")).String())
	assert.Equal(t, "2025-Q4", quarterKey(d("2025-11-14")).String())
	assert.Equal(t, "2025", yearKey(d("2025-11-14")).String())
}

func TestDateSetJSON(t *testing.T) {
	set := NewDateSet(d("2025-02-03"), d("2025-01-02"), d("2025-01-02"))
	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t, `["2025-01-02","2025-02-03"]`, string(data))

	var decoded DateSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, set.Equal(decoded))
	assert.True(t, decoded.Contains(d("2025-01-02").Add(10)))
	assert.False(t, decoded.Contains(d("2025-01-03")))
}
