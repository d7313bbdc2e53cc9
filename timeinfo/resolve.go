package timeinfo

import (
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/slackpad/stamp/meta"
)

// DefaultTolerance is how far GPS time and zoned camera time may drift apart
// and still confirm each other.
const DefaultTolerance = 10 * time.Second

// maxImpliedOffset bounds offsets derived by comparing two clocks.
const maxImpliedOffset = maxOffsetHours * time.Hour

// Options configure a Resolver. The zero value is usable.
type Options struct {
	// Tolerance overrides DefaultTolerance when positive.
	Tolerance time.Duration

	// FallbackLocation projects epoch-millisecond file names onto a wall
	// clock. UTC when nil.
	FallbackLocation *time.Location

	// Finder maps coordinates to zones. The shared tzf finder is used when
	// nil.
	Finder ZoneFinder

	Logger hclog.Logger
}

// Resolver runs the priority cascade over metadata documents. It holds only
// read-only state and may be shared between goroutines.
type Resolver struct {
	tolerance time.Duration
	fallback  *time.Location
	finder    ZoneFinder
	logger    hclog.Logger
}

// NewResolver returns a Resolver for opts. If no finder is given and the
// shared one cannot be built, the GPS levels of the cascade are skipped.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		tolerance: opts.Tolerance,
		fallback:  opts.FallbackLocation,
		finder:    opts.Finder,
		logger:    opts.Logger,
	}
	if r.tolerance <= 0 {
		r.tolerance = DefaultTolerance
	}
	if r.logger == nil {
		r.logger = hclog.NewNullLogger()
	}
	if r.finder == nil {
		finder, err := DefaultFinder()
		if err != nil {
			r.logger.Warn("Time zone finder unavailable, ignoring GPS coordinates", "error", err)
		} else {
			r.finder = finder
		}
	}
	return r
}

// Resolve works out the capture time described by doc using the default
// options.
func Resolve(doc meta.Value, gps *GPS) (*TimeInfo, error) {
	return NewResolver(Options{}).Resolve(doc, gps)
}

// Resolve works out the capture time described by doc, taken at gps if that
// is known. It returns ErrExtraction when no source yields a usable time.
func (r *Resolver) Resolve(doc meta.Value, gps *GPS) (*TimeInfo, error) {
	in := inputs{components: extractComponents(doc, r.fallback)}
	if gps != nil && in.local != nil {
		if !gps.valid() {
			r.logger.Debug("Ignoring invalid GPS coordinates", "latitude", gps.Latitude, "longitude", gps.Longitude)
		} else if loc, ok := zoneFor(r.finder, *gps); ok {
			in.zone = loc
		}
	}

	for _, l := range levels {
		d, ok := l.eval(r, in)
		if !ok {
			continue
		}
		r.logger.Trace("Resolved capture time", "level", l.name, "source", d.timeSource, "confidence", d.confidence)
		return d.assemble(), nil
	}
	return nil, ErrExtraction
}

func (g GPS) valid() bool {
	if math.IsNaN(g.Latitude) || math.IsNaN(g.Longitude) {
		return false
	}
	return g.Latitude >= -90 && g.Latitude <= 90 && g.Longitude >= -180 && g.Longitude <= 180
}

// inputs are the components of one document plus the zone covering its GPS
// position, when there is a local time to interpret in it.
type inputs struct {
	components
	zone *time.Location
}

// level is one rule of the cascade. eval reports false when the rule does
// not apply, handing over to the next one.
type level struct {
	name string
	eval func(r *Resolver, in inputs) (decision, bool)
}

// levels is the cascade, most trusted first.
var levels = []level{
	{"confirmed UTC", confirmedUTC},
	{"zoned", zonedLocal},
	{"fixed offset", fixedOffset},
	{"hybrid", hybrid},
	{"guessed offset", guessedOffset},
	{"naive", naiveOnly},
	{"UTC only", utcOnly},
	{"file time", fileTimeOnly},
}

func confirmedUTC(r *Resolver, in inputs) (decision, bool) {
	if in.local == nil || in.utc == nil || in.zone == nil {
		return decision{}, false
	}
	zoned, ok := ZoneAt(in.zone, in.local.wall)
	if !ok {
		return decision{}, false
	}

	diff := zoned.Sub(in.utc.t)
	if diff < 0 {
		diff = -diff
	}
	if diff.Truncate(time.Second) > r.tolerance {
		r.logger.Debug("GPS time does not confirm camera time",
			"local", in.local.source, "utc", in.utc.source, "difference", diff)
		return decision{}, false
	}

	_, offset := zoned.Zone()
	utc := in.utc.t
	return decision{
		utc:   &utc,
		local: in.local.wall,
		zone: &TimeZoneInfo{
			Name:          in.zone.String(),
			OffsetSeconds: offset,
			Source:        fmt.Sprintf("%s confirmed by %s @ GPS location", in.utc.source, in.local.source),
		},
		timeSource: in.local.source,
		confidence: High,
	}, true
}

func zonedLocal(_ *Resolver, in inputs) (decision, bool) {
	if in.local == nil || in.zone == nil {
		return decision{}, false
	}
	zoned, ok := ZoneAt(in.zone, in.local.wall)
	if !ok {
		return decision{}, false
	}

	_, offset := zoned.Zone()
	utc := zoned.UTC()
	return decision{
		utc:   &utc,
		local: in.local.wall,
		zone: &TimeZoneInfo{
			Name:          in.zone.String(),
			OffsetSeconds: offset,
			Source:        "IANA from GPS",
		},
		timeSource: in.local.source,
		confidence: High,
	}, true
}

func fixedOffset(_ *Resolver, in inputs) (decision, bool) {
	if in.local == nil || in.offset == nil {
		return decision{}, false
	}

	utc := in.local.wall.Add(-time.Duration(in.offset.seconds) * time.Second)
	return decision{
		utc:   &utc,
		local: in.local.wall,
		zone: &TimeZoneInfo{
			Name:          in.offset.display,
			OffsetSeconds: in.offset.seconds,
			Source:        in.offset.source,
		},
		timeSource: in.local.source,
		confidence: High,
	}, true
}

// hybrid pairs a camera clock with an unconfirmed UTC reading. The UTC value
// is kept as is; the offset between the two is only reported when it looks
// like a real zone offset.
func hybrid(_ *Resolver, in inputs) (decision, bool) {
	if in.local == nil || in.utc == nil {
		return decision{}, false
	}

	utc := in.utc.t
	d := decision{
		utc:        &utc,
		local:      in.local.wall,
		timeSource: in.local.source,
		confidence: Medium,
	}
	implied := in.local.wall.Sub(in.utc.t).Round(15 * time.Minute)
	if implied >= -maxImpliedOffset && implied <= maxImpliedOffset {
		offset := int(implied / time.Second)
		d.zone = &TimeZoneInfo{
			Name:          FormatOffset(offset),
			OffsetSeconds: offset,
			Source:        fmt.Sprintf("Implied by %s vs %s", in.local.source, in.utc.source),
		}
	}
	return d, true
}

func guessedOffset(_ *Resolver, in inputs) (decision, bool) {
	if in.local == nil || in.file == nil {
		return decision{}, false
	}

	_, offset := in.file.t.Zone()
	utc := in.local.wall.Add(-time.Duration(offset) * time.Second)
	return decision{
		utc:   &utc,
		local: in.local.wall,
		zone: &TimeZoneInfo{
			Name:          FormatOffset(offset),
			OffsetSeconds: offset,
			Source:        "Guessed from " + in.file.source,
		},
		timeSource: in.local.source,
		confidence: Medium,
	}, true
}

func naiveOnly(_ *Resolver, in inputs) (decision, bool) {
	if in.local == nil {
		return decision{}, false
	}
	return decision{
		local:      in.local.wall,
		timeSource: in.local.source,
		confidence: Low,
	}, true
}

func utcOnly(_ *Resolver, in inputs) (decision, bool) {
	if in.utc == nil {
		return decision{}, false
	}

	utc := in.utc.t
	return decision{
		utc:   &utc,
		local: wallClock(utc),
		zone: &TimeZoneInfo{
			Name:   "UTC",
			Source: in.utc.source,
		},
		timeSource: in.utc.source,
		confidence: High,
	}, true
}

func fileTimeOnly(_ *Resolver, in inputs) (decision, bool) {
	if in.file == nil {
		return decision{}, false
	}

	_, offset := in.file.t.Zone()
	utc := in.file.t.UTC()
	return decision{
		utc:   &utc,
		local: wallClock(in.file.t),
		zone: &TimeZoneInfo{
			Name:          FormatOffset(offset),
			OffsetSeconds: offset,
			Source:        in.file.source,
		},
		timeSource: in.file.source,
		confidence: Low,
	}, true
}
