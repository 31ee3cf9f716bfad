package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("nonexistent.yaml")
	require.NoError(t, err)

	assert.Equal(t, "weather-dashboard", cfg.AppName)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "openweather", cfg.LookupProvider)
	assert.Equal(t, 5, cfg.LookupLimit)
	assert.Equal(t, 400*time.Millisecond, cfg.DebounceDelay)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.HTTPMaxRetries)
	assert.Equal(t, "sqlite", cfg.CacheBackend)
	assert.Zero(t, cfg.RefreshInterval)

	city := cfg.DefaultCity.City()
	assert.Equal(t, "Tehran", city.Name)
	assert.Equal(t, 35.6892, city.Lat)
	assert.Equal(t, 51.389, city.Lon)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
app_env: production
port: "9000"
lookup_provider: google
debounce_delay: 250ms
cache_backend: memory
default_city:
  name: Shiraz
  country: IR
  lat: 29.59
  lon: 52.58
`)
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_CITY_NAME", "Isfahan")
	t.Setenv("REFRESH_INTERVAL", "30m")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "9090", cfg.Port, "env wins over file")
	assert.Equal(t, "google", cfg.LookupProvider)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceDelay)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, "Isfahan", cfg.DefaultCity.Name)
	assert.Equal(t, 29.59, cfg.DefaultCity.Lat)
	assert.Equal(t, 30*time.Minute, cfg.RefreshInterval)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "unknown backend", env: map[string]string{"CACHE_BACKEND": "etcd"}},
		{name: "unknown provider", env: map[string]string{"LOOKUP_PROVIDER": "bing"}},
		{name: "latitude out of range", env: map[string]string{"DEFAULT_CITY_LAT": "91"}},
		{name: "bad duration", env: map[string]string{"HTTP_TIMEOUT": "soon"}},
		{name: "bad base url", env: map[string]string{"ARCHIVE_BASE_URL": "not a url"}},
		{name: "bad yaml", file: "port: [1, 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := "nonexistent.yaml"
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}

			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	require.NoError(t, Validate(&cfg))

	cfg.CacheBackend = "redis"
	cfg.RedisURL = ""
	assert.Error(t, Validate(&cfg))
}
