package weather

import "errors"

var (
	// ErrLookup marks a failed city search. It never leaves a LocationLookup.
	ErrLookup = errors.New("location lookup failed")
	// ErrSnapshotFetch marks a failed current/forecast fetch.
	ErrSnapshotFetch = errors.New("weather snapshot fetch failed")
	// ErrHistoricalFetch marks a failed archive fetch.
	ErrHistoricalFetch = errors.New("historical temperature fetch failed")
	// ErrNoData is returned when an upstream answered but had nothing usable.
	ErrNoData = errors.New("no data available")
)
