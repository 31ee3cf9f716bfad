package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

const defaultConfigFile = "config/config.yaml"

type AppConfig struct {
	AppName  string `yaml:"app_name" envconfig:"APP_NAME" validate:"required"`
	AppEnv   string `yaml:"app_env" envconfig:"APP_ENV" validate:"required"`
	Port     string `yaml:"port" envconfig:"PORT" validate:"required,numeric"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	SentryDSN string `yaml:"sentry_dsn" envconfig:"SENTRY_DSN"`

	// Credentials are handed to the fetch layer untouched.
	OpenWeatherAPIKey    string `yaml:"openweather_api_key" envconfig:"OPENWEATHER_API_KEY"`
	WeatherAPIKey        string `yaml:"weatherapi_api_key" envconfig:"WEATHERAPI_API_KEY"`
	GoogleGeocoderAPIKey string `yaml:"google_geocoder_api_key" envconfig:"GOOGLE_GEOCODER_API_KEY"`

	LookupProvider string        `yaml:"lookup_provider" envconfig:"LOOKUP_PROVIDER" validate:"oneof=openweather google"`
	LookupLimit    int           `yaml:"lookup_limit" envconfig:"LOOKUP_LIMIT" validate:"min=1,max=20"`
	LookupCacheTTL time.Duration `yaml:"lookup_cache_ttl" envconfig:"LOOKUP_CACHE_TTL" validate:"gt=0"`
	DebounceDelay  time.Duration `yaml:"debounce_delay" envconfig:"DEBOUNCE_DELAY" validate:"gt=0"`

	HTTPTimeout    time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT" validate:"gt=0"`
	HTTPMaxRetries int           `yaml:"http_max_retries" envconfig:"HTTP_MAX_RETRIES" validate:"min=0,max=10"`

	// Empty base URLs select the public endpoints.
	GeocodingBaseURL  string `yaml:"geocoding_base_url" envconfig:"GEOCODING_BASE_URL" validate:"omitempty,url"`
	WeatherAPIBaseURL string `yaml:"weatherapi_base_url" envconfig:"WEATHERAPI_BASE_URL" validate:"omitempty,url"`
	ArchiveBaseURL    string `yaml:"archive_base_url" envconfig:"ARCHIVE_BASE_URL" validate:"omitempty,url"`

	CacheBackend   string `yaml:"cache_backend" envconfig:"CACHE_BACKEND" validate:"oneof=memory sqlite redis"`
	CachePath      string `yaml:"cache_path" envconfig:"CACHE_PATH" validate:"required_if=CacheBackend sqlite"`
	RedisURL       string `yaml:"redis_url" envconfig:"REDIS_URL" validate:"required_if=CacheBackend redis"`
	RedisKeyPrefix string `yaml:"redis_key_prefix" envconfig:"REDIS_KEY_PREFIX"`

	DefaultCity CityConfig `yaml:"default_city" envconfig:"DEFAULT_CITY"`

	// RefreshInterval re-fetches the current selection periodically; 0 disables it.
	// A view rehydrated from the cache has no selection (the cache stores no
	// coordinates), so refreshing starts only after the first Select.
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL" validate:"min=0"`
}

// CityConfig is the location selected when nothing usable is cached.
type CityConfig struct {
	Name    string  `yaml:"name" envconfig:"NAME" validate:"required"`
	Country string  `yaml:"country" envconfig:"COUNTRY"`
	Lat     float64 `yaml:"lat" envconfig:"LAT" validate:"min=-90,max=90"`
	Lon     float64 `yaml:"lon" envconfig:"LON" validate:"min=-180,max=180"`
}

func (c CityConfig) City() weather.City {
	return weather.City{Name: c.Name, Country: c.Country, Lat: c.Lat, Lon: c.Lon}
}

func (c *AppConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func defaults() AppConfig {
	return AppConfig{
		AppName:        "weather-dashboard",
		AppEnv:         "development",
		Port:           "8080",
		LogLevel:       "info",
		LookupProvider: "openweather",
		LookupLimit:    5,
		LookupCacheTTL: 10 * time.Minute,
		DebounceDelay:  weather.DefaultDebounceDelay,
		HTTPTimeout:    15 * time.Second,
		CacheBackend:   "sqlite",
		CachePath:      "data/weather.db",
		RedisURL:       "redis://localhost:6379/0",
		RedisKeyPrefix: "weather-dashboard:",
		DefaultCity: CityConfig{
			Name:    weather.DefaultCity.Name,
			Country: weather.DefaultCity.Country,
			Lat:     weather.DefaultCity.Lat,
			Lon:     weather.DefaultCity.Lon,
		},
	}
}

// Load reads configuration: .env, then the YAML file named by CONFIG_FILE,
// then environment overrides, then validation.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return LoadFrom(getenvDefault("CONFIG_FILE", defaultConfigFile))
}

// LoadFrom is Load without the .env step. A missing file is not an error.
func LoadFrom(path string) (*AppConfig, error) {
	cfg := defaults()

	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("environment variable parsing: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

var validate = validator.New()

func Validate(cfg *AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
