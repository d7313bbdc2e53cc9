package meta

import (
	"fmt"
	"sync"

	"github.com/barasher/go-exiftool"
)

// Extractor reads documents from media files through a long-running exiftool
// process. Tags are grouped by family 2 (Time, Location, Other, ...) and
// values are not print-converted, so coordinates come out as signed decimals.
type Extractor struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

// NewExtractor starts exiftool. An empty binaryPath looks exiftool up in PATH.
func NewExtractor(binaryPath string) (*Extractor, error) {
	opts := []func(*exiftool.Exiftool) error{
		exiftool.PrintGroupNames("2"),
		exiftool.NoPrintConversion(),
	}
	if binaryPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(binaryPath))
	}

	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start exiftool: %w", err)
	}
	return &Extractor{et: et}, nil
}

// Extract returns the grouped document for one file.
func (e *Extractor) Extract(path string) (Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.et == nil {
		return Null, fmt.Errorf("exiftool is closed")
	}

	infos := e.et.ExtractMetadata(path)
	if len(infos) == 0 {
		return Null, fmt.Errorf("exiftool returned nothing for %q", path)
	}
	if infos[0].Err != nil {
		return Null, fmt.Errorf("exiftool failed on %q: %w", path, infos[0].Err)
	}

	doc := FromGrouped(infos[0].Fields)
	if SourceFile(doc) == "" {
		doc = doc.WithKey(SourceFileKey, String(path))
	}
	return doc, nil
}

// Close stops the exiftool process.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.et == nil {
		return nil
	}
	err := e.et.Close()
	e.et = nil
	return err
}
