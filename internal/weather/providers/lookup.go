package providers

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/common"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

const (
	defaultLookupLimit    = 5
	defaultLookupCacheTTL = 10 * time.Minute
)

// LookupOptions configures a location lookup client.
type LookupOptions struct {
	ClientOptions
	Limit    int
	CacheTTL time.Duration
}

func (o LookupOptions) withDefaults() LookupOptions {
	if o.Limit <= 0 {
		o.Limit = defaultLookupLimit
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaultLookupCacheTTL
	}
	return o
}

// lookupMemo remembers recent query results so retyping a prefix stays local.
// Failed lookups are never remembered.
type lookupMemo struct {
	c *cache.Cache
}

func newLookupMemo(ttl time.Duration) *lookupMemo {
	return &lookupMemo{c: cache.New(ttl, 2*ttl)}
}

func (m *lookupMemo) get(query string) ([]weather.City, bool) {
	v, found := m.c.Get(common.NormalizeQuery(query))
	if !found {
		return nil, false
	}
	cities, ok := v.([]weather.City)
	if !ok {
		return nil, false
	}
	return append([]weather.City(nil), cities...), true
}

func (m *lookupMemo) set(query string, cities []weather.City) {
	m.c.Set(common.NormalizeQuery(query), append([]weather.City(nil), cities...), cache.DefaultExpiration)
}

func searchable(query string) bool {
	return common.QueryLen(query) >= weather.MinQueryLength
}
