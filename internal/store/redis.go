package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

// RedisStore keeps the result cache in redis under <prefix>weather and <prefix>tempAvg.
// Keys carry no TTL: the cache is last-value, not time-bounded.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects to the redis URL and pings it once.
func NewRedisStore(ctx context.Context, rawURL, prefix string) (*RedisStore, error) {
	if rawURL == "" {
		rawURL = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisStore(rdb, prefix), nil
}

func newRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Load(ctx context.Context) (weather.CacheEntry, error) {
	return load(ctx, s)
}

func (s *RedisStore) Save(ctx context.Context, snapshot *weather.WeatherSnapshot, averages weather.MonthlyAverages) error {
	return save(ctx, s, snapshot, averages)
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) put(ctx context.Context, values map[string]string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.prefix+k, v, 0)
		}
		return nil
	})
	return err
}
