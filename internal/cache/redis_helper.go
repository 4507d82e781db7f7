package cache

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultCacheTTL     = time.Hour
	defaultRedisTimeout = 2 * time.Second
)

// newRedisClient builds a client with bounded timeouts. An unreachable server
// is logged, not returned: every later call degrades to a miss.
func newRedisClient(cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, 0, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("redis ping failed, forecast cache will miss until it is reachable")
	}

	ttl := cfg.TTL()
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return client, ttl, nil
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = opt
	} else {
		host := cfg.RedisHost
		if host == "" {
			host = "127.0.0.1"
		}

		port := cfg.RedisPort
		if port == "" {
			port = "6379"
		}

		opts = &redis.Options{
			Addr:     net.JoinHostPort(host, port),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}

	opts.DialTimeout = millis(cfg.DialTimeoutMS)
	opts.ReadTimeout = millis(cfg.ReadTimeoutMS)
	opts.WriteTimeout = millis(cfg.WriteTimeoutMS)
	opts.MaxRetries = 1
	return opts, nil
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return defaultRedisTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

// scanKeys walks every key matching pattern in batches.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, batchSize int64, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, pattern, batchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}

		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			return nil
		}
	}
}

func deleteKeysMatching(ctx context.Context, client *redis.Client, pattern string, batchSize int64) (int, error) {
	deleted := 0
	err := scanKeys(ctx, client, pattern, batchSize, func(keys []string) error {
		n, err := client.Del(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
		deleted += int(n)
		return nil
	})
	return deleted, err
}

// parseInfo turns INFO output into a flat field map.
func parseInfo(info string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[key] = value
	}
	return fields
}
