package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/logger"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

const openWeatherGeocodingURL = "https://api.openweathermap.org/geo/1.0/direct"

// OpenWeatherLookup implements weather.LocationLookup with OpenWeather direct geocoding.
type OpenWeatherLookup struct {
	name    string
	apiKey  string
	baseURL string
	limit   int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	memo    *lookupMemo
	l       *logger.Logger
}

func NewOpenWeatherLookup(client *http.Client, apiKey string, opts LookupOptions, l *logger.Logger) *OpenWeatherLookup {
	opts = opts.withDefaults()
	if l == nil {
		l = logger.Nop()
	}

	return &OpenWeatherLookup{
		name:    "openweather-geocoding",
		apiKey:  apiKey,
		baseURL: baseURLOr(opts.BaseURL, openWeatherGeocodingURL),
		limit:   opts.Limit,
		httpCfg: newHTTPConfig(client, opts.MaxRetries),
		circuit: newCircuitBreaker("openweather-geocoding"),
		memo:    newLookupMemo(opts.CacheTTL),
		l:       l,
	}
}

func (p *OpenWeatherLookup) Name() string {
	return p.name
}

// Search never fails: errors are logged and yield an empty result.
func (p *OpenWeatherLookup) Search(ctx context.Context, query string) []weather.City {
	if !searchable(query) {
		return []weather.City{}
	}
	if cities, ok := p.memo.get(query); ok {
		return cities
	}

	cities, err := p.search(ctx, strings.TrimSpace(query))
	if err != nil {
		p.l.Warning("location lookup failed", map[string]any{
			"provider": p.name,
			"query":    query,
			"err":      err.Error(),
		})
		return []weather.City{}
	}

	p.memo.set(query, cities)
	return cities
}

func (p *OpenWeatherLookup) search(ctx context.Context, query string) ([]weather.City, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: openweather %w", weather.ErrLookup, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(p.limit))
	values.Set("appid", p.apiKey)

	var payload []struct {
		Name    string  `json:"name"`
		Country string  `json:"country"`
		State   string  `json:"state"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, values, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", weather.ErrLookup, err)
	}

	cities := make([]weather.City, 0, len(payload))
	for _, item := range payload {
		cities = append(cities, weather.City{
			Name:    item.Name,
			Country: item.Country,
			Lat:     item.Lat,
			Lon:     item.Lon,
		})
	}
	return cities, nil
}
