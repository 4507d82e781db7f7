package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/config"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (ForecastCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisForecastCache(client, time.Hour), srv
}

func response(names ...string) *domain.ForecastResponse {
	resp := &domain.ForecastResponse{Summary: domain.ForecastSummary{MAPE: 12.5, MAE: 0.4, DaysPredict: 7}}
	for _, name := range names {
		resp.Items = append(resp.Items, domain.ForecastItem{ItemName: name, Code: "unknown", Quantity: 7})
	}
	return resp
}

func TestGenerateKeyIgnoresFieldOrder(t *testing.T) {
	a := GenerateKey([]map[string]any{{"a": 1.0, "b": 2.0}}, 7)
	b := GenerateKey([]map[string]any{{"b": 2.0, "a": 1.0}}, 7)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, GenerateKey([]map[string]any{{"a": 1.0, "b": 2.0}}, 14))
	assert.NotEqual(t, a, GenerateKey([]map[string]any{{"a": 1.0, "b": 3.0}}, 7))
	assert.NotEqual(t, a, GenerateKey([]map[string]any{{"a": 1.0, "b": 2.0, "note": "x"}}, 7))
	assert.Contains(t, a, forecastKeyPrefix)
	assert.Len(t, a, len(forecastKeyPrefix)+64)
}

func TestGenerateKeyNestedAndExoticValues(t *testing.T) {
	when := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	a := GenerateKey([]map[string]any{{"meta": map[string]any{"y": 1.0, "x": []any{"p", when}}}}, 3)
	b := GenerateKey([]map[string]any{{"meta": map[string]any{"x": []any{"p", when}, "y": 1.0}}}, 3)

	assert.Equal(t, a, b)
}

func TestSetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := GenerateKey([]map[string]any{{"item_name": "Milk"}}, 7)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	require.True(t, c.Set(ctx, key, response("Milk"), 0))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, response("Milk"), got)
}

func TestEntriesExpire(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.True(t, c.Set(ctx, forecastKeyPrefix+"short", response("Milk"), time.Minute))
	srv.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, forecastKeyPrefix+"short")
	assert.False(t, ok)
}

func TestInvalidateByPattern(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"a1", "a2", "b1"} {
		require.True(t, c.Set(ctx, forecastKeyPrefix+k, response("Milk"), 0))
	}
	require.NoError(t, srv.Set("other:key", "keep"))

	assert.Equal(t, 2, c.InvalidateByPattern(ctx, "a*"))
	assert.Equal(t, 1, c.InvalidateByPattern(ctx, ""))
	assert.True(t, srv.Exists("other:key"))
}

func TestInvalidateForItems(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.True(t, c.Set(ctx, forecastKeyPrefix+"1", response("Milk", "Bread"), 0))
	require.True(t, c.Set(ctx, forecastKeyPrefix+"2", response("Bread"), 0))
	require.True(t, c.Set(ctx, forecastKeyPrefix+"3", response("Tea"), 0))
	require.NoError(t, srv.Set(forecastKeyPrefix+"junk", "not json"))

	assert.Equal(t, 2, c.InvalidateForItems(ctx, []string{"Bread"}))
	assert.Equal(t, 0, c.InvalidateForItems(ctx, nil))

	_, ok := c.Get(ctx, forecastKeyPrefix+"3")
	assert.True(t, ok)
	assert.True(t, srv.Exists(forecastKeyPrefix+"junk"))
}

func TestStatsCountsForecastKeys(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.True(t, c.Set(ctx, forecastKeyPrefix+"1", response("Milk"), 0))
	require.NoError(t, srv.Set("unrelated", "x"))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Enabled)
	assert.Equal(t, 1, stats.KeyCount)
	assert.True(t, c.Healthy(ctx))
}

func TestUnreachableRedisDegradesToMiss(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	c, err := NewForecastCache(config.CacheConfig{
		Enabled:        true,
		RedisURL:       "redis://" + addr,
		DialTimeoutMS:  100,
		ReadTimeoutMS:  100,
		WriteTimeoutMS: 100,
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, ok := c.Get(ctx, "ml_forecast:x")
	assert.False(t, ok)
	assert.False(t, c.Set(ctx, "ml_forecast:x", response("Milk"), 0))
	assert.Equal(t, 0, c.InvalidateByPattern(ctx, "*"))
	assert.Equal(t, 0, c.InvalidateForItems(ctx, []string{"Milk"}))
	assert.False(t, c.Healthy(ctx))
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewForecastCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, c.Set(ctx, "k", response("Milk"), 0))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Enabled)
}

func TestBuildRedisOptionsTimeouts(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", ReadTimeoutMS: 250})
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 250*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, defaultRedisTimeout, opts.DialTimeout)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestParseInfo(t *testing.T) {
	fields := parseInfo("# Server\r\nredis_version:7.2.4\r\nuptime_in_seconds:42\r\n\r\n# Memory\r\nused_memory_human:1.2M\r\n")

	assert.Equal(t, "7.2.4", fields["redis_version"])
	assert.Equal(t, "42", fields["uptime_in_seconds"])
	assert.Equal(t, "1.2M", fields["used_memory_human"])
}
