package timeinfo

import (
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// filenamePattern is a device naming convention that embeds a capture time.
type filenamePattern struct {
	re    *regexp.Regexp
	parse func(m []string, fallback *time.Location) (time.Time, bool)
}

// filenamePatterns are tried in order; the first that yields a valid time wins.
var filenamePatterns = []filenamePattern{
	{
		// IMG_20240101_123045.jpg, PXL_20240917_131928676.jpg
		re: regexp.MustCompile(`(\d{8})_(\d{6})`),
		parse: func(m []string, _ *time.Location) (time.Time, bool) {
			return parseWall("20060102150405", m[1]+m[2])
		},
	},
	{
		// Screenshot_2024-01-01_12-30-45.png
		re: regexp.MustCompile(`(\d{4}-\d{2}-\d{2})_(\d{2}-\d{2}-\d{2})`),
		parse: func(m []string, _ *time.Location) (time.Time, bool) {
			return parseWall("2006-01-02 15-04-05", m[1]+" "+m[2])
		},
	},
	{
		// 1704112245000.jpg, messenger exports named by Unix milliseconds
		re: regexp.MustCompile(`^(\d{13})\.`),
		parse: func(m []string, fallback *time.Location) (time.Time, bool) {
			ms, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return time.Time{}, false
			}
			loc := fallback
			if loc == nil {
				loc = time.UTC
			}
			return wallClock(time.UnixMilli(ms).In(loc)), true
		},
	},
}

// ParseFilename extracts a wall-clock capture time from a file name. Only the
// base name is examined. Instants encoded as epoch milliseconds are projected
// onto the clock of fallback, or UTC when fallback is nil.
func ParseFilename(name string, fallback *time.Location) (time.Time, bool) {
	base := filepath.Base(name)
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		if t, ok := p.parse(m, fallback); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseWall(layout, value string) (time.Time, bool) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// wallClock drops the zone of t, keeping its clock reading.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
