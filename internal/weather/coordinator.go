package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/common"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/logger"
)

const DefaultDebounceDelay = 400 * time.Millisecond

// DefaultCity is selected on a cold start.
var DefaultCity = City{Name: "Tehran", Country: "IR", Lat: 35.6892, Lon: 51.389}

// Options tunes a Coordinator. Zero values fall back to defaults.
type Options struct {
	DebounceDelay time.Duration
	DefaultCity   City
	Now           func() time.Time
}

// Coordinator orchestrates debounced lookup, selection, the concurrent
// snapshot/historical fetch, aggregation, caching and subscriber notification.
//
// Every state transition and every cache write happens under mu. Each selection
// bumps generation; fetch results carrying an older generation are dropped
// before they touch the view or the cache.
type Coordinator struct {
	lookup     LocationLookup
	snapshots  SnapshotFetcher
	historical HistoricalFetcher
	cache      ResultCache
	debouncer  *Debouncer
	l          *logger.Logger
	opts       Options

	mu           sync.Mutex
	baseCtx      context.Context
	state        ViewState
	lookupSeq    uint64
	searchActive bool
	generation   uint64
	cancelFetch  context.CancelFunc
	outstanding  int
	succeeded    int
	lastOK       bool
	subs         map[int]chan ViewState
	nextSub      int
	closed       bool
	wg           sync.WaitGroup
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(
	lookup LocationLookup,
	snapshots SnapshotFetcher,
	historical HistoricalFetcher,
	cache ResultCache,
	l *logger.Logger,
	opts Options,
) *Coordinator {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.DefaultCity == (City{}) {
		opts.DefaultCity = DefaultCity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if l == nil {
		l = logger.Nop()
	}

	return &Coordinator{
		lookup:     lookup,
		snapshots:  snapshots,
		historical: historical,
		cache:      cache,
		debouncer:  NewDebouncer(),
		l:          l,
		opts:       opts,
		baseCtx:    context.Background(),
		state:      ViewState{Phase: PhaseIdle},
		subs:       make(map[int]chan ViewState),
	}
}

// Start rehydrates the view from the cache. When either slot is missing the
// default city is selected once.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	entry, err := c.cache.Load(ctx)
	if err != nil {
		c.l.Warning("cache load failed, starting cold", map[string]any{"err": err.Error()})
	}

	c.mu.Lock()
	if entry.Weather != nil {
		c.state.Weather = entry.Weather
	}
	if len(entry.TempAvg) > 0 {
		c.state.TempAvg = entry.TempAvg
	}
	complete := entry.Complete()
	if complete {
		c.lastOK = true
	}
	c.state.Phase = c.phaseLocked()
	c.publishLocked()
	c.mu.Unlock()

	if complete {
		c.l.Info("view rehydrated from cache", map[string]any{
			"city":   entry.Weather.City,
			"months": len(entry.TempAvg),
		})
		return
	}

	c.l.Info("cache incomplete, fetching default city", map[string]any{
		"city":       c.opts.DefaultCity.Label(),
		"hasWeather": entry.Weather != nil,
		"hasTempAvg": len(entry.TempAvg) > 0,
	})
	c.Select(c.opts.DefaultCity)
}

// Input feeds one keystroke's worth of query text.
// Queries shorter than MinQueryLength clear the options without any lookup.
func (c *Coordinator) Input(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.lookupSeq++
	seq := c.lookupSeq
	c.state.Query = query

	if common.QueryLen(query) < MinQueryLength {
		c.debouncer.Cancel()
		c.searchActive = false
		// A cleared search is idle until the next fetch settles; shown data stays.
		c.lastOK = false
		c.state.Options = nil
		c.state.Phase = c.phaseLocked()
		c.publishLocked()
		return
	}

	c.searchActive = true
	c.state.Phase = c.phaseLocked()
	c.publishLocked()

	ctx := c.baseCtx
	c.debouncer.Schedule(func() {
		c.runLookup(ctx, seq, query)
	}, c.opts.DebounceDelay)
}

func (c *Coordinator) runLookup(ctx context.Context, seq uint64, query string) {
	cities := c.lookup.Search(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.lookupSeq {
		c.l.Debug("discarding superseded lookup", map[string]any{"query": query})
		return
	}
	if cities == nil {
		cities = []City{}
	}

	c.state.Options = cities
	c.state.Phase = c.phaseLocked()
	c.publishLocked()
}

// Select makes city the current selection and dispatches both fetches.
// Any earlier selection's results become stale. It returns the selection id.
func (c *Coordinator) Select(city City) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ""
	}

	c.debouncer.Cancel()
	c.lookupSeq++
	c.searchActive = false

	return c.selectLocked(city)
}

// Refresh re-fetches the current selection. It does nothing (and returns false)
// when nothing is selected or a fetch is already outstanding.
func (c *Coordinator) Refresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state.Selected == nil || c.outstanding > 0 {
		return false
	}

	c.selectLocked(*c.state.Selected)
	return true
}

func (c *Coordinator) selectLocked(city City) string {
	if c.cancelFetch != nil {
		c.cancelFetch()
	}

	c.generation++
	gen := c.generation
	id := uuid.NewString()

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancelFetch = cancel

	selected := city
	c.state.Selected = &selected
	c.state.SelectionID = id
	c.state.SnapshotErr = ""
	c.state.HistoricalErr = ""
	c.outstanding = 2
	c.succeeded = 0

	c.state.Phase = PhaseSelected
	c.publishLocked()

	c.l.Info("city selected", map[string]any{
		"selection": id,
		"city":      city.Label(),
		"lat":       city.Lat,
		"lon":       city.Lon,
	})

	c.wg.Add(2)
	go c.fetchSnapshot(ctx, gen, id, city)
	go c.fetchHistorical(ctx, gen, id, city)

	c.state.Phase = c.phaseLocked()
	c.publishLocked()

	return id
}

func (c *Coordinator) fetchSnapshot(ctx context.Context, gen uint64, id string, city City) {
	defer c.wg.Done()

	snapshot, err := c.snapshots.FetchSnapshot(ctx, city.Lat, city.Lon)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(gen) {
		c.l.Debug("discarding stale snapshot", map[string]any{"selection": id, "city": city.Label()})
		return
	}

	c.outstanding--
	if err != nil {
		c.state.SnapshotErr = err.Error()
		c.l.Warning("snapshot fetch failed, keeping previous snapshot", map[string]any{
			"selection": id,
			"provider":  c.snapshots.Name(),
			"err":       err.Error(),
		})
	} else {
		c.succeeded++
		c.state.Weather = &snapshot
		c.saveLocked(ctx, &snapshot, nil)
		c.l.Info("snapshot updated", map[string]any{"selection": id, "city": snapshot.City, "temp": snapshot.TempC})
	}

	c.settleLocked()
}

func (c *Coordinator) fetchHistorical(ctx context.Context, gen uint64, id string, city City) {
	defer c.wg.Done()

	daily, err := c.historical.FetchDailyMeans(ctx, city.Lat, city.Lon)

	var averages MonthlyAverages
	if err == nil {
		averages = AggregateMonthly(daily.Dates, daily.Means)
		if len(averages) == 0 {
			err = fmt.Errorf("%w: %w", ErrHistoricalFetch, ErrNoData)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(gen) {
		c.l.Debug("discarding stale monthly averages", map[string]any{"selection": id, "city": city.Label()})
		return
	}

	c.outstanding--
	if err != nil {
		c.state.HistoricalErr = err.Error()
		c.l.Warning("historical fetch failed, keeping previous averages", map[string]any{
			"selection": id,
			"provider":  c.historical.Name(),
			"err":       err.Error(),
		})
	} else {
		c.succeeded++
		c.state.TempAvg = averages
		c.saveLocked(ctx, nil, averages)
		c.l.Info("monthly averages updated", map[string]any{"selection": id, "months": len(averages)})
	}

	c.settleLocked()
}

func (c *Coordinator) currentLocked(gen uint64) bool {
	return !c.closed && gen == c.generation
}

// saveLocked writes through to the cache before subscribers hear about the change.
func (c *Coordinator) saveLocked(ctx context.Context, snapshot *WeatherSnapshot, averages MonthlyAverages) {
	if err := c.cache.Save(context.WithoutCancel(ctx), snapshot, averages); err != nil {
		c.l.Error(fmt.Errorf("cache write: %w", err), map[string]any{"selection": c.state.SelectionID})
	}
}

func (c *Coordinator) settleLocked() {
	if c.outstanding == 0 {
		c.lastOK = c.succeeded > 0
		if c.cancelFetch != nil {
			c.cancelFetch()
			c.cancelFetch = nil
		}
	}
	c.state.Phase = c.phaseLocked()
	c.publishLocked()
}

func (c *Coordinator) phaseLocked() Phase {
	switch {
	case c.searchActive:
		return PhaseSearching
	case c.outstanding > 0:
		return PhaseFetching
	case c.lastOK:
		return PhaseReady
	}
	return PhaseIdle
}

// State returns a copy of the current view.
func (c *Coordinator) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Subscribe returns a channel that always holds the latest view. A slow reader
// skips intermediate states; it never blocks the coordinator.
func (c *Coordinator) Subscribe() (<-chan ViewState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan ViewState, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.copyLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Coordinator) publishLocked() {
	c.state.UpdatedAt = c.opts.Now()
	st := c.copyLocked()

	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (c *Coordinator) copyLocked() ViewState {
	st := c.state
	if c.state.Options != nil {
		st.Options = append([]City(nil), c.state.Options...)
	}
	if c.state.TempAvg != nil {
		st.TempAvg = append(MonthlyAverages(nil), c.state.TempAvg...)
	}
	if c.state.Selected != nil {
		sel := *c.state.Selected
		st.Selected = &sel
	}
	return st
}

// Close cancels pending work, waits for in-flight fetches to return and
// closes every subscription.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.debouncer.Cancel()
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.wg.Wait()
}
