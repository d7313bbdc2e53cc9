package timeinfo

import (
	"sync"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ringsaturn/tzf"
)

// ZoneFinder maps a coordinate to an IANA zone name. An empty name means the
// coordinate has no known zone. Implementations must be safe for concurrent use.
type ZoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

var (
	defaultFinderOnce sync.Once
	defaultFinder     ZoneFinder
	defaultFinderErr  error
)

// DefaultFinder returns the process-wide finder backed by the tzf polygon
// data set. It is built on first use and never changes afterwards.
func DefaultFinder() (ZoneFinder, error) {
	defaultFinderOnce.Do(func() {
		f, err := tzf.NewDefaultFinder()
		if err != nil {
			defaultFinderErr = err
			return
		}
		defaultFinder = f
	})
	return defaultFinder, defaultFinderErr
}

const locationCacheSize = 512

var locations = mustLocationCache()

func mustLocationCache() *lru.Cache[string, *time.Location] {
	c, err := lru.New[string, *time.Location](locationCacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

// loadLocation is time.LoadLocation behind a shared cache; parsing zone
// rules is far more expensive than the rest of a resolution.
func loadLocation(name string) (*time.Location, error) {
	if loc, ok := locations.Get(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	locations.Add(name, loc)
	return loc, nil
}

// zoneFor returns the zone covering gps, or false if there is none.
func zoneFor(finder ZoneFinder, gps GPS) (*time.Location, bool) {
	if finder == nil {
		return nil, false
	}
	name := finder.GetTimezoneName(gps.Longitude, gps.Latitude)
	if name == "" {
		return nil, false
	}
	loc, err := loadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// ZoneAt interprets the wall clock of wall in loc. When the reading occurs
// twice (the repeated hour when clocks fall back) the earlier instant is
// returned. When it never occurs (the hour skipped when clocks spring
// forward) ok is false.
func ZoneAt(loc *time.Location, wall time.Time) (t time.Time, ok bool) {
	asUTC := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), time.UTC)

	// Any transition that can affect this reading lies within a day of it,
	// so the offsets in force a day either side cover every candidate.
	seen := make(map[int]bool, 3)
	for _, probe := range []time.Time{asUTC.Add(-24 * time.Hour), asUTC, asUTC.Add(24 * time.Hour)} {
		_, offset := probe.In(loc).Zone()
		if seen[offset] {
			continue
		}
		seen[offset] = true

		candidate := asUTC.Add(-time.Duration(offset) * time.Second).In(loc)
		if _, got := candidate.Zone(); got != offset {
			continue
		}
		if !ok || candidate.Before(t) {
			t, ok = candidate, true
		}
	}
	return t, ok
}
