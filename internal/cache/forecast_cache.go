package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/config"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const forecastScanBatchSize = 200

// ForecastCache stores assembled forecast responses. Backend failures are
// logged and reported as misses; no method returns a backend error except Stats.
type ForecastCache interface {
	Get(ctx context.Context, key string) (*domain.ForecastResponse, bool)
	Set(ctx context.Context, key string, resp *domain.ForecastResponse, ttl time.Duration) bool
	InvalidateByPattern(ctx context.Context, pattern string) int
	InvalidateForItems(ctx context.Context, names []string) int
	Stats(ctx context.Context) (domain.CacheStats, error)
	Healthy(ctx context.Context) bool
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// NewRedisForecastCache wraps an existing client.
func NewRedisForecastCache(client *redis.Client, ttl time.Duration) ForecastCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisForecastCache{client: client, ttl: ttl}
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, key string) (*domain.ForecastResponse, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		log.Debug().Str("key", key).Msg("forecast cache miss")
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("forecast cache: get failed")
		return nil, false
	}

	var resp domain.ForecastResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("forecast cache: decode failed")
		return nil, false
	}

	log.Debug().Str("key", key).Msg("forecast cache hit")
	return &resp, true
}

func (c *redisForecastCache) Set(ctx context.Context, key string, resp *domain.ForecastResponse, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.ttl
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("forecast cache: encode failed")
		return false
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("forecast cache: set failed")
		return false
	}
	return true
}

func (c *redisForecastCache) InvalidateByPattern(ctx context.Context, pattern string) int {
	deleted, err := deleteKeysMatching(ctx, c.client, scopedPattern(pattern), forecastScanBatchSize)
	if err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("forecast cache: invalidate failed")
	}
	log.Info().Str("pattern", pattern).Int("deleted", deleted).Msg("forecast cache invalidated")
	return deleted
}

// InvalidateForItems deletes every entry whose response mentions one of names.
// It reads each cached entry; there is no secondary index.
func (c *redisForecastCache) InvalidateForItems(ctx context.Context, names []string) int {
	if len(names) == 0 {
		return 0
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	deleted := 0
	err := scanKeys(ctx, c.client, forecastKeyPrefix+"*", forecastScanBatchSize, func(keys []string) error {
		var stale []string
		for _, key := range keys {
			payload, err := c.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var resp domain.ForecastResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				log.Debug().Err(err).Str("key", key).Msg("forecast cache: skipping undecodable entry")
				continue
			}
			for _, name := range resp.ItemNames() {
				if wanted[name] {
					stale = append(stale, key)
					break
				}
			}
		}
		if len(stale) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, stale...).Result()
		if err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
		deleted += int(n)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Strs("items", names).Msg("forecast cache: item invalidation failed")
	}
	return deleted
}

func (c *redisForecastCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	stats := domain.CacheStats{Enabled: true}

	count := 0
	if err := scanKeys(ctx, c.client, forecastKeyPrefix+"*", forecastScanBatchSize, func(keys []string) error {
		count += len(keys)
		return nil
	}); err != nil {
		return stats, err
	}
	stats.KeyCount = count

	info, err := c.client.Info(ctx).Result()
	if err != nil {
		log.Warn().Err(err).Msg("forecast cache: info failed")
		return stats, nil
	}
	fields := parseInfo(info)
	stats.RedisVersion = fields["redis_version"]
	stats.UsedMemory = fields["used_memory_human"]
	stats.ConnectedClients, _ = strconv.Atoi(fields["connected_clients"])
	stats.UptimeSeconds, _ = strconv.ParseInt(fields["uptime_in_seconds"], 10, 64)
	return stats, nil
}

func (c *redisForecastCache) Healthy(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

func (n *noopForecastCache) Get(ctx context.Context, key string) (*domain.ForecastResponse, bool) {
	return nil, false
}

func (n *noopForecastCache) Set(ctx context.Context, key string, resp *domain.ForecastResponse, ttl time.Duration) bool {
	return false
}

func (n *noopForecastCache) InvalidateByPattern(ctx context.Context, pattern string) int {
	return 0
}

func (n *noopForecastCache) InvalidateForItems(ctx context.Context, names []string) int {
	return 0
}

func (n *noopForecastCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	return domain.CacheStats{Enabled: false}, nil
}

func (n *noopForecastCache) Healthy(ctx context.Context) bool {
	return false
}

// scopedPattern keeps invalidation inside the forecast key space.
func scopedPattern(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = "*"
	}
	if strings.HasPrefix(pattern, forecastKeyPrefix) {
		return pattern
	}
	return forecastKeyPrefix + pattern
}
