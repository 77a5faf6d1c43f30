package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/markethunt/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations are no-ops
	var result []string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(context.Background(), "key", []string{"x"}, time.Minute))
	assert.NoError(t, cache.Delete(context.Background(), "key"))
}

func TestCache_GetSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(Wrap(db), "markethunt")
	ctx := context.Background()
	key := TradingDatesKey("", "2025-01-01", "2025-01-31")

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("markethunt:cache:" + key).SetVal(`["2025-01-02","2025-01-03"]`)

		var dates []string
		found, err := cache.Get(ctx, key, &dates)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []string{"2025-01-02", "2025-01-03"}, dates)
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("markethunt:cache:" + key).RedisNil()

		var dates []string
		found, err := cache.Get(ctx, key, &dates)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet("markethunt:cache:" + key).SetErr(errors.New("connection reset"))

		var dates []string
		_, err := cache.Get(ctx, key, &dates)
		assert.Error(t, err)
	})

	t.Run("set", func(t *testing.T) {
		mock.ExpectSet("markethunt:cache:"+key, []byte(`["2025-01-02"]`), time.Hour).SetVal("OK")
		require.NoError(t, cache.Set(ctx, key, []string{"2025-01-02"}, time.Hour))
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectDel("markethunt:cache:" + key).SetVal(1)
		require.NoError(t, cache.Delete(ctx, key))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradingDatesKey(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"", "trading_dates:all:2025-01-01:2025-12-31"},
		{"069500", "trading_dates:069500:2025-01-01:2025-12-31"},
	}

	for _, tt := range tests {
		if got := TradingDatesKey(tt.code, "2025-01-01", "2025-12-31"); got != tt.expected {
			t.Errorf("got %q, want %q", got, tt.expected)
		}
	}
}
