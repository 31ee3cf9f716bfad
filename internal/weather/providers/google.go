package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/logger"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

// GoogleLookup implements weather.LocationLookup with the Google Geocoding API.
// Google resolves a query to its single best match, so at most one city comes back.
type GoogleLookup struct {
	name    string
	apiKey  string
	memo    *lookupMemo
	l       *logger.Logger
	geocode func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleLookup sets the package-level geocoder key; only one key per process is supported.
func NewGoogleLookup(apiKey string, opts LookupOptions, l *logger.Logger) *GoogleLookup {
	opts = opts.withDefaults()
	if l == nil {
		l = logger.Nop()
	}
	geocoder.ApiKey = apiKey

	return &GoogleLookup{
		name:    "google-geocoding",
		apiKey:  apiKey,
		memo:    newLookupMemo(opts.CacheTTL),
		l:       l,
		geocode: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

func (p *GoogleLookup) Name() string {
	return p.name
}

func (p *GoogleLookup) Search(ctx context.Context, query string) []weather.City {
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

func (p *GoogleLookup) search(ctx context.Context, query string) ([]weather.City, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: google %w", weather.ErrLookup, errNoAPIKey)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc, err := p.geocode(geocoder.Address{City: query})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", weather.ErrLookup, err)
	}

	city := weather.City{Name: query, Lat: loc.Latitude, Lon: loc.Longitude}

	// The forward call only yields coordinates; the reverse call names the place.
	addresses, err := p.reverse(loc)
	if err != nil {
		p.l.Debug("reverse geocoding failed, keeping query as name", map[string]any{"query": query, "err": err.Error()})
		return []weather.City{city}, nil
	}
	for _, a := range addresses {
		if a.City == "" && a.Country == "" {
			continue
		}
		if a.City != "" {
			city.Name = a.City
		}
		city.Country = a.Country
		break
	}

	return []weather.City{city}, nil
}
