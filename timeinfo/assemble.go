package timeinfo

import "time"

// decision is the outcome of the cascade level that applied.
type decision struct {
	utc        *time.Time
	local      time.Time
	zone       *TimeZoneInfo
	timeSource string
	confidence Confidence
}

func (d decision) assemble() *TimeInfo {
	ti := &TimeInfo{
		Local:    wallClock(d.local),
		Timezone: d.zone,
		SourceDetails: SourceDetails{
			TimeSource: d.timeSource,
			Confidence: d.confidence,
		},
	}
	if d.utc != nil {
		utc := d.utc.UTC()
		ti.UTC = &utc
	}
	return ti
}
