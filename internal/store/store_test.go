package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/logger"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

func sampleSnapshot(city string) *weather.WeatherSnapshot {
	return &weather.WeatherSnapshot{
		CapturedAtDate:    "2024-06-01",
		CapturedAtWeekday: "Saturday",
		CapturedAtTime:    "09:05",
		City:              city,
		TempC:             25,
		TempMinC:          18,
		TempMaxC:          32,
		FeelsLikeC:        24,
		Description:       "Sunny",
		IconRef:           "//cdn/113.png",
		ForecastDays: []weather.ForecastDay{
			{Date: "2024-06-01", IconRef: "//cdn/116.png", HourlyTempsC: []float64{19.1, 20.25}},
		},
	}
}

// runCacheContract exercises the ResultCache contract against any backend.
func runCacheContract(t *testing.T, c weather.ResultCache) {
	ctx := context.Background()

	entry, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, entry.Weather)
	assert.Empty(t, entry.TempAvg)
	assert.False(t, entry.Complete())

	s := sampleSnapshot("Tehran")
	m := weather.MonthlyAverages{{Month: "Nov", AvgC: 9}, {Month: "Dec", AvgC: 4.5}, {Month: "Jan", AvgC: 2.1}}
	require.NoError(t, c.Save(ctx, s, m))

	entry, err = c.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry.Weather)
	assert.Equal(t, *s, *entry.Weather)
	assert.Equal(t, m, entry.TempAvg)
	assert.True(t, entry.Complete())

	// A nil snapshot leaves the stored one in place.
	m2 := weather.MonthlyAverages{{Month: "Feb", AvgC: 6}}
	require.NoError(t, c.Save(ctx, nil, m2))
	entry, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, *s, *entry.Weather)
	assert.Equal(t, m2, entry.TempAvg)

	// Empty averages leave the stored ones in place.
	s2 := sampleSnapshot("Shiraz")
	require.NoError(t, c.Save(ctx, s2, nil))
	require.NoError(t, c.Save(ctx, nil, weather.MonthlyAverages{}))
	entry, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Shiraz", entry.Weather.City)
	assert.Equal(t, m2, entry.TempAvg)
}

func TestMemoryStore(t *testing.T) {
	runCacheContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "weather.db")
	s, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer s.Close()

	runCacheContract(t, s)
}

func TestSQLiteStore_LogsOpen(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewZapLogger(logger.Options{AppName: "weather-dashboard", AppEnv: "test"}, &buf)

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "weather.db"), l)
	require.NoError(t, err)
	defer s.Close()

	assert.Contains(t, buf.String(), `"msg":"sqlite cache opened"`)
	assert.Contains(t, buf.String(), `"journal_mode":"wal"`)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleSnapshot("Tehran"), weather.MonthlyAverages{{Month: "Jan", AvgC: 15}}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	entry, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.True(t, entry.Complete())
	assert.Equal(t, "Tehran", entry.Weather.City)
}

func TestLoad_CorruptSlotKeepsTheOther(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.put(ctx, map[string]string{
		KeyWeather: `{"city":`,
		KeyTempAvg: `{"Jan":15.0,"Feb":7.5}`,
	}))

	entry, err := s.Load(ctx)
	require.Error(t, err)
	assert.Nil(t, entry.Weather)
	assert.Equal(t, []string{"Jan", "Feb"}, entry.TempAvg.Months())
}

func TestLoad_StoredLayout(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, nil, weather.MonthlyAverages{{Month: "Mar", AvgC: 12}, {Month: "Apr", AvgC: 17.3}}))

	raw, err := s.get(ctx, KeyTempAvg)
	require.NoError(t, err)
	assert.Equal(t, `{"Mar":12.0,"Apr":17.3}`, raw)

	_, err = s.get(ctx, KeyWeather)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_Backends(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, c)

	c, err = New(ctx, Options{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "w.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, c)
	require.NoError(t, c.Close())

	_, err = New(ctx, Options{Backend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	err := retry.Do(
		func() error { return rdb.Ping(context.Background()).Err() },
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
	)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	prefix := "test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		rdb.Del(context.Background(), prefix+KeyWeather, prefix+KeyTempAvg)
	})

	s := newRedisStore(rdb, prefix)
	runCacheContract(t, s)

	ttl, err := rdb.TTL(context.Background(), prefix+KeyWeather).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}
