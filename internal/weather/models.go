package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Phase is the coordinator's position in the search-to-data pipeline.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSearching Phase = "searching"
	PhaseSelected  Phase = "selected"
	PhaseFetching  Phase = "fetching"
	PhaseReady     Phase = "ready"
)

// City is a geocoded place returned by a location lookup.
// Lat/Lon identify it; Name and Country are for display only.
type City struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Key returns a canonical string key for the city's coordinates.
func (c City) Key() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Label is the "Name - Country" string shown in option lists.
func (c City) Label() string {
	if c.Country == "" {
		return c.Name
	}
	return c.Name + " - " + c.Country
}

// ForecastDay holds one day of the short-range forecast.
// Hourly samples keep the provider's precision.
type ForecastDay struct {
	Date         string    `json:"date"`
	IconRef      string    `json:"icon"`
	HourlyTempsC []float64 `json:"hourlyTempsC"`
}

// WeatherSnapshot is a point-in-time observation plus the forecast that came with it.
// It is never patched; the next successful fetch replaces it.
type WeatherSnapshot struct {
	CapturedAtDate    string        `json:"date"`
	CapturedAtWeekday string        `json:"day"`
	CapturedAtTime    string        `json:"time"`
	City              string        `json:"city"`
	TempC             int           `json:"temp"`
	TempMinC          int           `json:"temp_min"`
	TempMaxC          int           `json:"temp_max"`
	FeelsLikeC        int           `json:"feels_like"`
	Description       string        `json:"description"`
	IconRef           string        `json:"icon"`
	ForecastDays      []ForecastDay `json:"forecast"`
}

// StampCapture fills the capture fields from the local clock.
func (s *WeatherSnapshot) StampCapture(now time.Time) {
	s.CapturedAtDate = now.Format("2006-01-02")
	s.CapturedAtWeekday = now.Weekday().String()
	s.CapturedAtTime = now.Format("15:04")
}

// DailyMeans is the raw archive series: two aligned slices.
type DailyMeans struct {
	Dates []string  `json:"dates"`
	Means []float64 `json:"means"`
}

// MonthlyAverage is one bucket of the monthly series.
type MonthlyAverage struct {
	Month string
	AvgC  float64
}

// MonthlyAverages is an ordered month-label -> average mapping.
// It serializes as a JSON object whose key order is the slice order.
type MonthlyAverages []MonthlyAverage

// Get returns the average for a month label.
func (m MonthlyAverages) Get(month string) (float64, bool) {
	for _, a := range m {
		if a.Month == month {
			return a.AvgC, true
		}
	}
	return 0, false
}

// Months returns the labels in order.
func (m MonthlyAverages) Months() []string {
	out := make([]string, 0, len(m))
	for _, a := range m {
		out = append(out, a.Month)
	}
	return out
}

func (m MonthlyAverages) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Month)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(a.AvgC, 'f', 1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *MonthlyAverages) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("monthly averages: expected object, got %v", tok)
	}

	out := MonthlyAverages{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("monthly averages: unexpected key %v", keyTok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("monthly averages: value for %q: %w", key, err)
		}
		out = append(out, MonthlyAverage{Month: key, AvgC: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = out
	return nil
}

// CacheEntry is the persisted pair. Either side may be absent.
type CacheEntry struct {
	Weather *WeatherSnapshot
	TempAvg MonthlyAverages
}

// Complete reports whether both slots hold a value.
func (e CacheEntry) Complete() bool {
	return e.Weather != nil && len(e.TempAvg) > 0
}

// ViewState is the read-only view handed to consumers of the coordinator.
type ViewState struct {
	Phase         Phase            `json:"phase"`
	Query         string           `json:"query"`
	Options       []City           `json:"options"`
	Selected      *City            `json:"selected,omitempty"`
	SelectionID   string           `json:"selectionId,omitempty"`
	Weather       *WeatherSnapshot `json:"weather,omitempty"`
	TempAvg       MonthlyAverages  `json:"tempAvg"`
	SnapshotErr   string           `json:"snapshotError,omitempty"`
	HistoricalErr string           `json:"historicalError,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}
