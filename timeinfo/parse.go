package timeinfo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var localLayouts = []struct {
	layout   string
	fraction bool
}{
	{"2006:01:02 15:04:05.999999999", true},
	{"2006-01-02 15:04:05.999999999", true},
	{"2006:01:02 15:04:05", false},
	{"2006-01-02 15:04:05", false},
}

// ParseLocal parses a zoneless EXIF style timestamp ("2024:01:02 15:04:05",
// optionally with fractional seconds or dashes in the date). hasFraction
// reports whether the string carried a nonzero fractional second.
func ParseLocal(s string) (t time.Time, hasFraction bool, ok bool) {
	for _, l := range localLayouts {
		parsed, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		return parsed, l.fraction && parsed.Nanosecond() != 0, true
	}
	return time.Time{}, false, false
}

var fixedOffsetLayouts = []string{
	"2006:01:02 15:04:05.999999999-07:00",
	"2006:01:02 15:04:05.999999999-0700",
	time.RFC3339Nano,
}

// ParseFixedOffset parses a timestamp carrying a numeric UTC offset, as found
// in file system date fields ("2024:01:02 15:04:05+02:00"), falling back to
// RFC 3339. The result is always in a fixed zone.
func ParseFixedOffset(s string) (time.Time, bool) {
	for _, layout := range fixedOffsetLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		_, offset := t.Zone()
		return t.In(fixedZone(offset)), true
	}
	return time.Time{}, false
}

// ParseUTCZ parses a UTC timestamp. GPS fields use the EXIF date layout with a
// literal "Z" suffix ("2024:05:05 10:00:00Z"), which is not RFC 3339; genuine
// RFC 3339 input is accepted as well.
func ParseUTCZ(s string) (time.Time, bool) {
	if trimmed, found := strings.CutSuffix(s, "Z"); found {
		if t, err := time.Parse("2006:01:02 15:04:05", trimmed); err == nil {
			return t.UTC(), true
		}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// maxOffsetHours is the largest offset any zone uses (Line Islands, +14:00).
const maxOffsetHours = 14

// ParseOffset parses an EXIF offset declaration such as "+02:00", "-0500" or
// "Z" into seconds east of UTC. The input string is returned as the display form.
func ParseOffset(s string) (seconds int, display string, ok bool) {
	if s == "Z" {
		return 0, s, true
	}
	m := offsetPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > maxOffsetHours || minutes > 59 {
		return 0, "", false
	}
	seconds = hours*3600 + minutes*60
	if m[1] == "-" {
		seconds = -seconds
	}
	return seconds, s, true
}

// AddSubseconds sets the fractional second of t from a separate numeric EXIF
// field. The digits are read as a decimal fraction: 123 is 0.123s and 123456
// is 0.123456s. Values longer than nine digits keep their last nine. Zero
// leaves t untouched.
func AddSubseconds(t time.Time, n uint32) time.Time {
	if n == 0 {
		return t
	}
	digits := len(strconv.FormatUint(uint64(n), 10))

	var nanos int
	if digits <= 9 {
		scale := 1
		for i := digits; i < 9; i++ {
			scale *= 10
		}
		nanos = int(n) * scale
	} else {
		nanos = int(n % 1_000_000_000)
	}

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), nanos, t.Location())
}

// FormatOffset renders seconds east of UTC as "+HH:MM".
func FormatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

func fixedZone(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone(FormatOffset(offset), offset)
}
