package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/slackpad/stamp/meta"
	"github.com/slackpad/stamp/timeinfo"
)

// Google Photos Takeout writes a JSON sidecar next to each media file. Newer
// exports use the longer suffix.
var takeoutSidecarSuffixes = []string{
	".supplemental-metadata.json",
	".json",
}

// takeoutMetadata is the part of a Takeout sidecar we read.
type takeoutMetadata struct {
	Title          string `json:"title"`
	PhotoTakenTime struct {
		Timestamp string `json:"timestamp"`
	} `json:"photoTakenTime"`
}

// getTakeoutTimestamp reads the capture instant from a Takeout sidecar. The
// timestamp is Unix seconds, so the result is always UTC.
func getTakeoutTimestamp(path string) (time.Time, error) {
	if path == "" {
		return time.Time{}, errors.New("metadata path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var md takeoutMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode metadata JSON: %w", err)
	}
	if md.PhotoTakenTime.Timestamp == "" {
		return time.Time{}, errors.New("photo taken timestamp is empty in metadata")
	}

	secs, err := strconv.ParseInt(md.PhotoTakenTime.Timestamp, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", md.PhotoTakenTime.Timestamp, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// findTakeoutSidecar returns the Takeout sidecar of a media file, if any.
func findTakeoutSidecar(path string) (string, bool) {
	for _, suffix := range takeoutSidecarSuffixes {
		candidate := path + suffix
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// isTakeoutSidecar reports whether path is the sidecar of a media file that
// sits next to it.
func isTakeoutSidecar(path string) bool {
	for _, suffix := range takeoutSidecarSuffixes {
		media, found := strings.CutSuffix(path, suffix)
		if !found || media == "" {
			continue
		}
		if info, err := os.Stat(media); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// withTakeoutTime adds a Takeout capture instant to a metadata document as a
// UTC candidate.
func withTakeoutTime(doc meta.Value, ts time.Time) meta.Value {
	return doc.With(timeinfo.TakeoutGroup, timeinfo.PhotoTakenTimeField, meta.String(ts.UTC().Format(time.RFC3339)))
}
