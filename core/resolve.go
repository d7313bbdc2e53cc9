package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/slackpad/stamp/meta"
	"github.com/slackpad/stamp/timeinfo"
)

const locationGroup = "Location"

// gpsFromDocument reads the coordinates of a document, if it has both.
func gpsFromDocument(doc meta.Value) *timeinfo.GPS {
	lat, okLat := doc.FloatField(locationGroup, "GPSLatitude")
	lon, okLon := doc.FloatField(locationGroup, "GPSLongitude")
	if !okLat || !okLon {
		return nil
	}
	return &timeinfo.GPS{Latitude: lat, Longitude: lon}
}

// ResolveOptions control ResolveFiles.
type ResolveOptions struct {
	Resolver *timeinfo.Resolver

	// Source reads media files. Without it only JSON dumps are accepted.
	Source MetadataSource

	// GPS overrides the coordinates found in the documents.
	GPS *timeinfo.GPS
}

// resolveRecord is the JSON form of one resolution.
type resolveRecord struct {
	SourceFile string             `json:"source_file"`
	Time       *timeinfo.TimeInfo `json:"time,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// ResolveFiles resolves the capture time of each path and writes the results
// to w as a JSON array. A path ending in .json is read as an exiftool dump
// (exiftool -g2 -n -json) and may describe many files; anything else is read
// through the metadata source. Unreadable inputs are reported in the returned
// error after the others have been written.
func ResolveFiles(logger hclog.Logger, w io.Writer, paths []string, opts ResolveOptions) error {
	if len(paths) == 0 {
		return errors.New("no paths given")
	}
	if opts.Resolver == nil {
		return errors.New("resolver is required")
	}

	records := make([]resolveRecord, 0, len(paths))
	var errs *multierror.Error
	for _, path := range paths {
		docs, err := loadDocuments(path, opts.Source)
		if err != nil {
			logger.Error("Failed to read metadata", "path", path, "error", err)
			errs = multierror.Append(errs, err)
			continue
		}
		for _, doc := range docs {
			records = append(records, resolveDocument(logger, doc, path, opts))
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return err
	}
	return errs.ErrorOrNil()
}

func loadDocuments(path string, source MetadataSource) ([]meta.Value, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		docs, err := meta.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", path, err)
		}
		return docs, nil
	}

	if source == nil {
		return nil, fmt.Errorf("cannot read %q without exiftool", path)
	}
	doc, err := source.Extract(path)
	if err != nil {
		return nil, err
	}
	if sidecar, ok := findTakeoutSidecar(path); ok {
		if ts, err := getTakeoutTimestamp(sidecar); err == nil {
			doc = withTakeoutTime(doc, ts)
		}
	}
	return []meta.Value{doc}, nil
}

func resolveDocument(logger hclog.Logger, doc meta.Value, path string, opts ResolveOptions) resolveRecord {
	rec := resolveRecord{SourceFile: meta.SourceFile(doc)}
	if rec.SourceFile == "" {
		rec.SourceFile = path
	}

	gps := opts.GPS
	if gps == nil {
		gps = gpsFromDocument(doc)
	}

	ti, err := opts.Resolver.Resolve(doc, gps)
	if err != nil {
		logger.Warn("No capture time", "file", rec.SourceFile, "error", err)
		rec.Error = err.Error()
		return rec
	}
	logger.Debug("Resolved capture time", "file", rec.SourceFile, "confidence", ti.SourceDetails.Confidence)
	rec.Time = ti
	return rec
}
