package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

const (
	openMeteoArchiveURL = "https://archive-api.open-meteo.com/v1/archive"
	historyDays         = 365
)

// OpenMeteoProvider implements weather.HistoricalFetcher with the Open-Meteo archive.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewOpenMeteoProvider(client *http.Client, opts ClientOptions) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo-archive",
		baseURL: baseURLOr(opts.BaseURL, openMeteoArchiveURL),
		httpCfg: newHTTPConfig(client, opts.MaxRetries),
		circuit: newCircuitBreaker("openmeteo-archive"),
		now:     time.Now,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchDailyMeans returns the daily mean temperatures for the trailing year, today included.
func (p *OpenMeteoProvider) FetchDailyMeans(ctx context.Context, lat, lon float64) (weather.DailyMeans, error) {
	end := p.now()
	// Calendar days, so a DST change inside the window does not shift the start date.
	start := end.AddDate(0, 0, -historyDays)

	values := url.Values{}
	values.Set("latitude", formatCoord(lat))
	values.Set("longitude", formatCoord(lon))
	values.Set("start_date", start.Format("2006-01-02"))
	values.Set("end_date", end.Format("2006-01-02"))
	values.Set("daily", "temperature_2m_mean")
	values.Set("timezone", "auto")

	var payload struct {
		Daily struct {
			Time []string `json:"time"`
			// The archive lags a few days behind; those samples come back as null.
			Mean []*float64 `json:"temperature_2m_mean"`
		} `json:"daily"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, values, &payload); err != nil {
		return weather.DailyMeans{}, fmt.Errorf("%w: %w", weather.ErrHistoricalFetch, err)
	}

	n := min(len(payload.Daily.Time), len(payload.Daily.Mean))
	out := weather.DailyMeans{
		Dates: make([]string, 0, n),
		Means: make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		if payload.Daily.Mean[i] == nil {
			continue
		}
		out.Dates = append(out.Dates, payload.Daily.Time[i])
		out.Means = append(out.Means, *payload.Daily.Mean[i])
	}

	return out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
