package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/logger"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

const (
	KeyWeather = "weather"
	KeyTempAvg = "tempAvg"
)

var (
	// ErrNotFound is returned by a backend when a slot has never been written.
	ErrNotFound = errors.New("no cached value for key")
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")
)

// kvStore is the slot-level contract every backend implements.
// Values are opaque JSON strings.
type kvStore interface {
	get(ctx context.Context, key string) (string, error)
	put(ctx context.Context, values map[string]string) error
}

// load reads both slots. A missing slot is not an error; an unreadable one is
// reported but does not hide the other slot.
func load(ctx context.Context, kv kvStore) (weather.CacheEntry, error) {
	var entry weather.CacheEntry
	var errs []error

	if raw, err := kv.get(ctx, KeyWeather); err == nil {
		var snapshot weather.WeatherSnapshot
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", KeyWeather, err))
		} else {
			entry.Weather = &snapshot
		}
	} else if !errors.Is(err, ErrNotFound) {
		errs = append(errs, fmt.Errorf("read %s: %w", KeyWeather, err))
	}

	if raw, err := kv.get(ctx, KeyTempAvg); err == nil {
		var averages weather.MonthlyAverages
		if err := json.Unmarshal([]byte(raw), &averages); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", KeyTempAvg, err))
		} else if len(averages) > 0 {
			entry.TempAvg = averages
		}
	} else if !errors.Is(err, ErrNotFound) {
		errs = append(errs, fmt.Errorf("read %s: %w", KeyTempAvg, err))
	}

	return entry, errors.Join(errs...)
}

// save writes whichever slots carry a value. Nothing is ever cleared.
func save(ctx context.Context, kv kvStore, snapshot *weather.WeatherSnapshot, averages weather.MonthlyAverages) error {
	values := make(map[string]string, 2)

	if snapshot != nil {
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("encode %s: %w", KeyWeather, err)
		}
		values[KeyWeather] = string(raw)
	}
	if len(averages) > 0 {
		raw, err := json.Marshal(averages)
		if err != nil {
			return fmt.Errorf("encode %s: %w", KeyTempAvg, err)
		}
		values[KeyTempAvg] = string(raw)
	}

	if len(values) == 0 {
		return nil
	}
	return kv.put(ctx, values)
}

// Options selects and configures a cache backend.
type Options struct {
	Backend        string
	Path           string
	RedisURL       string
	RedisKeyPrefix string
	Logger         *logger.Logger
}

// Cache is a weather.ResultCache that owns resources to release.
type Cache interface {
	weather.ResultCache
	Close() error
}

// New opens the backend named in opts: memory, sqlite or redis.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "", "sqlite":
		return NewSQLiteStore(opts.Path, opts.Logger)
	case "redis":
		return NewRedisStore(ctx, opts.RedisURL, opts.RedisKeyPrefix)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}
