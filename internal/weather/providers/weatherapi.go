package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/common"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

const (
	weatherAPIForecastURL = "https://api.weatherapi.com/v1/forecast.json"
	forecastDays          = 14
)

// WeatherAPIProvider implements weather.SnapshotFetcher for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, opts ClientOptions) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: baseURLOr(opts.BaseURL, weatherAPIForecastURL),
		httpCfg: newHTTPConfig(client, opts.MaxRetries),
		circuit: newCircuitBreaker("weatherapi"),
		now:     time.Now,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPICondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

type weatherAPIPayload struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC      float64             `json:"temp_c"`
		FeelsLikeC float64             `json:"feelslike_c"`
		Condition  weatherAPICondition `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MinTempC  float64             `json:"mintemp_c"`
				MaxTempC  float64             `json:"maxtemp_c"`
				Condition weatherAPICondition `json:"condition"`
			} `json:"day"`
			Hour []struct {
				TempC float64 `json:"temp_c"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// FetchSnapshot returns current conditions and the forecast for a coordinate.
func (p *WeatherAPIProvider) FetchSnapshot(ctx context.Context, lat, lon float64) (weather.WeatherSnapshot, error) {
	if p.apiKey == "" {
		return weather.WeatherSnapshot{}, fmt.Errorf("%w: weatherapi %w", weather.ErrSnapshotFetch, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", fmt.Sprintf("%s,%s", formatCoord(lat), formatCoord(lon)))
	values.Set("days", fmt.Sprint(forecastDays))
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	var payload weatherAPIPayload
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, values, &payload); err != nil {
		return weather.WeatherSnapshot{}, fmt.Errorf("%w: %w", weather.ErrSnapshotFetch, err)
	}
	if payload.Location.Name == "" && len(payload.Forecast.ForecastDay) == 0 {
		return weather.WeatherSnapshot{}, fmt.Errorf("%w: %w", weather.ErrSnapshotFetch, weather.ErrNoData)
	}

	snapshot := normalizeWeatherAPI(payload)
	snapshot.StampCapture(p.now())
	return snapshot, nil
}

func normalizeWeatherAPI(payload weatherAPIPayload) weather.WeatherSnapshot {
	snapshot := weather.WeatherSnapshot{
		City:         payload.Location.Name,
		TempC:        common.RoundToInt(payload.Current.TempC),
		FeelsLikeC:   common.RoundToInt(payload.Current.FeelsLikeC),
		Description:  payload.Current.Condition.Text,
		IconRef:      payload.Current.Condition.Icon,
		ForecastDays: make([]weather.ForecastDay, 0, len(payload.Forecast.ForecastDay)),
	}

	for i, fd := range payload.Forecast.ForecastDay {
		if i == 0 {
			snapshot.TempMinC = common.RoundToInt(fd.Day.MinTempC)
			snapshot.TempMaxC = common.RoundToInt(fd.Day.MaxTempC)
		}

		hourly := make([]float64, 0, len(fd.Hour))
		for _, h := range fd.Hour {
			hourly = append(hourly, h.TempC)
		}
		snapshot.ForecastDays = append(snapshot.ForecastDays, weather.ForecastDay{
			Date:         fd.Date,
			IconRef:      fd.Day.Condition.Icon,
			HourlyTempsC: hourly,
		})
	}

	return snapshot
}
