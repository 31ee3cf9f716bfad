package weather

import (
	"context"
)

// MinQueryLength is the shortest query that reaches a LocationLookup.
const MinQueryLength = 2

// LocationLookup abstracts a city search source (e.g. OpenWeather geocoding, Google).
// Failures degrade to an empty result; implementations log them.
type LocationLookup interface {
	Name() string
	Search(ctx context.Context, query string) []City
}

// SnapshotFetcher fetches current conditions plus the short-range forecast.
type SnapshotFetcher interface {
	Name() string
	FetchSnapshot(ctx context.Context, lat, lon float64) (WeatherSnapshot, error)
}

// HistoricalFetcher fetches the trailing year of daily mean temperatures.
type HistoricalFetcher interface {
	Name() string
	FetchDailyMeans(ctx context.Context, lat, lon float64) (DailyMeans, error)
}

// ResultCache is the contract every persistent store must satisfy.
// Save never clears a slot: a nil snapshot or empty averages leave it as is.
type ResultCache interface {
	Load(ctx context.Context) (CacheEntry, error)
	Save(ctx context.Context, snapshot *WeatherSnapshot, averages MonthlyAverages) error
}
