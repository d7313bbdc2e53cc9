// Package timeinfo works out when a media file was captured. It reconciles
// the timestamps found in a grouped metadata document (camera wall clock,
// GPS satellite time, declared UTC offsets, file system dates, the file name)
// plus optional coordinates into one record with a confidence grade.
//
// Resolution is a pure computation: it does no I/O and keeps no state between
// calls, so it is safe to run for many files in parallel.
package timeinfo

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrExtraction is returned when no usable time information could be derived
// from any source.
var ErrExtraction = errors.New("no usable time metadata extracted")

// Confidence grades how far a TimeInfo can be trusted.
type Confidence string

const (
	// High: GPS time confirmed by the camera, camera time zoned by GPS
	// coordinates, camera time with a declared offset, or GPS time alone.
	High Confidence = "High"
	// Medium: camera time paired with an unconfirmed UTC source, or with an
	// offset guessed from the file system.
	Medium Confidence = "Medium"
	// Low: camera or file name time without any offset, or file system time alone.
	Low Confidence = "Low"
)

// GPS is a coordinate in decimal degrees.
type GPS struct {
	Latitude  float64
	Longitude float64
}

// TimeInfo is the resolved capture time of a media file.
type TimeInfo struct {
	// UTC is the absolute instant, nil when no offset or direct UTC source
	// could be established.
	UTC *time.Time `json:"datetime_utc"`

	// Local is the best wall-clock reading. Its location is always UTC and
	// carries no meaning; only the clock fields are significant.
	Local time.Time `json:"datetime_local"`

	// Timezone describes how Local relates to UTC, if known.
	Timezone *TimeZoneInfo `json:"timezone"`

	SourceDetails SourceDetails `json:"source_details"`
}

// TimeZoneInfo describes the zone or offset that relates local time to UTC.
type TimeZoneInfo struct {
	// Name is an IANA zone ("Europe/Amsterdam"), an offset ("+02:00") or "UTC".
	Name string `json:"name"`
	// OffsetSeconds is local minus UTC at the resolved instant, DST included.
	OffsetSeconds int `json:"offset_seconds"`
	// Source says how the zone was established, e.g. "IANA from GPS".
	Source string `json:"source"`
}

// SourceDetails names the metadata fields the local time came from.
type SourceDetails struct {
	TimeSource string     `json:"time_source"`
	Confidence Confidence `json:"confidence"`
}

// LocalLayout formats wall-clock times without any zone designator.
const LocalLayout = "2006-01-02T15:04:05.999999999"

func (ti TimeInfo) MarshalJSON() ([]byte, error) {
	type plain TimeInfo
	return json.Marshal(struct {
		plain
		Local string `json:"datetime_local"`
	}{
		plain: plain(ti),
		Local: ti.Local.Format(LocalLayout),
	})
}
