package timeinfo

import (
	"strings"
	"time"

	"github.com/slackpad/stamp/meta"
)

// Document groups and the fields consulted within them. Names follow
// exiftool's family 2 grouping (-g2).
const (
	timeGroup     = "Time"
	otherGroup    = "Other"
	fileNameField = "FileName"

	// TakeoutGroup and PhotoTakenTimeField locate the UTC capture time
	// copied into a document from a Google Takeout sidecar.
	TakeoutGroup        = "Takeout"
	PhotoTakenTimeField = "PhotoTakenTime"
)

// localFields are the wall-clock capture time fields, best first.
var localFields = []string{
	"SubSecDateTimeOriginal",
	"SubSecCreateDate",
	"SubSecTimeDigitized",
	"DateTimeOriginal",
	"CreateDate",
	"DateTimeDigitized",
	"SubSecModifyDate",
	"ModifyDate",
}

var offsetFields = []string{
	"OffsetTimeOriginal",
	"OffsetTimeDigitized",
	"OffsetTime",
}

// fileTimeFields are file system dates. The modification date survives
// copies best, so it is the closest proxy for the capture time.
var fileTimeFields = []string{
	"FileModifyDate",
	"FileCreateDate",
	"FileAccessDate",
}

type localCandidate struct {
	wall   time.Time
	source string
}

type utcCandidate struct {
	t      time.Time
	source string
}

type offsetCandidate struct {
	seconds int
	display string
	source  string
}

type fileCandidate struct {
	t      time.Time
	source string
}

// components are the independent time sources found in one document. Every
// field is optional; each present one names the fields it came from.
type components struct {
	local  *localCandidate
	utc    *utcCandidate
	offset *offsetCandidate
	file   *fileCandidate
}

func extractComponents(doc meta.Value, fallback *time.Location) components {
	return components{
		local:  extractLocal(doc, fallback),
		utc:    extractUTC(doc),
		offset: extractOffset(doc),
		file:   extractFileTime(doc),
	}
}

func extractLocal(doc meta.Value, fallback *time.Location) *localCandidate {
	for _, field := range localFields {
		s, ok := doc.StringField(timeGroup, field)
		if !ok {
			continue
		}
		wall, hasFraction, ok := ParseLocal(s)
		if !ok {
			continue
		}

		if hasFraction {
			return &localCandidate{wall: wall, source: field + ": Parsed SubSeconds"}
		}
		for _, subField := range subsecondFields(field) {
			if n, ok := doc.NumberField(timeGroup, subField); ok {
				return &localCandidate{wall: AddSubseconds(wall, n), source: field + " + " + subField}
			}
		}
		return &localCandidate{wall: wall, source: field}
	}

	if name, ok := doc.StringField(otherGroup, fileNameField); ok {
		if wall, ok := ParseFilename(name, fallback); ok {
			return &localCandidate{wall: wall, source: fileNameField}
		}
	}
	return nil
}

// exifSubsecondFields pairs the EXIF timestamps whose fractional second
// lives in a field the name derivation below cannot reach.
var exifSubsecondFields = map[string]string{
	"CreateDate":        "SubSecTimeDigitized",
	"DateTimeDigitized": "SubSecTimeDigitized",
	"ModifyDate":        "SubSecTime",
}

// subsecondFields lists the numeric fields that may carry the fractional
// second of a timestamp field, e.g. DateTimeOriginal -> SubSecTimeOriginal,
// SubSecondOriginal.
func subsecondFields(field string) []string {
	base := strings.ReplaceAll(field, "SubSec", "")
	stem := strings.ReplaceAll(strings.ReplaceAll(base, "Date", ""), "Time", "")
	names := []string{
		"SubSecTime" + stem,
		"SubSecond" + strings.ReplaceAll(base, "DateTime", ""),
	}
	if paired, ok := exifSubsecondFields[base]; ok {
		names = append(names, paired)
	}
	return names
}

func extractUTC(doc meta.Value) *utcCandidate {
	if s, ok := doc.StringField(timeGroup, "GPSDateTime"); ok {
		if t, ok := ParseUTCZ(s); ok {
			return &utcCandidate{t: t, source: "GPSDateTime"}
		}
	}

	date, okDate := doc.StringField(timeGroup, "GPSDateStamp")
	clock, okClock := doc.StringField(timeGroup, "GPSTimeStamp")
	if okDate && okClock {
		if t, ok := ParseUTCZ(date + " " + clock + "Z"); ok {
			return &utcCandidate{t: t, source: "GPSDateStamp/GPSTimeStamp"}
		}
	}

	if s, ok := doc.StringField(TakeoutGroup, PhotoTakenTimeField); ok {
		if t, ok := ParseUTCZ(s); ok {
			return &utcCandidate{t: t, source: PhotoTakenTimeField}
		}
	}
	return nil
}

func extractOffset(doc meta.Value) *offsetCandidate {
	for _, field := range offsetFields {
		s, ok := doc.StringField(timeGroup, field)
		if !ok {
			continue
		}
		if secs, display, ok := ParseOffset(s); ok {
			return &offsetCandidate{seconds: secs, display: display, source: field}
		}
	}
	return nil
}

func extractFileTime(doc meta.Value) *fileCandidate {
	for _, field := range fileTimeFields {
		s, ok := doc.StringField(timeGroup, field)
		if !ok {
			continue
		}
		if t, ok := ParseFixedOffset(s); ok {
			return &fileCandidate{t: t, source: field}
		}
	}
	return nil
}
