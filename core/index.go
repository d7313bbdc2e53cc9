package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/ryanuber/columnize"
	"github.com/slackpad/stamp/meta"
	"github.com/slackpad/stamp/timeinfo"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"
)

const defaultContentType = "application/octet-stream"

// MetadataSource produces the grouped metadata document of a media file.
type MetadataSource interface {
	Extract(path string) (meta.Value, error)
}

// AddOptions carry the collaborators of IndexAdd.
type AddOptions struct {
	Source   MetadataSource
	Resolver *timeinfo.Resolver

	// Workers bounds how many files are hashed and resolved at once.
	Workers int
}

// fileResult is the outcome of indexing one file.
type fileResult struct {
	hash  []byte
	entry *indexEntry
}

// IndexAdd walks rootPath and records every file in the named index along
// with its resolved capture time. Files that cannot be read are reported in
// the returned error but do not stop the rest of the walk. Files whose time
// cannot be resolved are still indexed, with the failure recorded.
func IndexAdd(ctx context.Context, logger hclog.Logger, dbPath, indexName, rootPath string, opts AddOptions) error {
	if indexName == "" {
		return errors.New("index name cannot be empty")
	}
	if rootPath == "" {
		return errors.New("root path cannot be empty")
	}
	if opts.Source == nil || opts.Resolver == nil {
		return errors.New("metadata source and resolver are required")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	db, err := getDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	paths, err := collectFiles(logger, rootPath)
	if err != nil {
		return err
	}
	logger.Info("Indexing files", "index", indexName, "files", len(paths), "workers", workers)

	var (
		mu      sync.Mutex
		results []fileResult
		failed  int
		errs    *multierror.Error
	)
	bar := pb.StartNew(len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer bar.Increment()

			result, err := indexFile(logger, path, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("Failed to index file", "path", path, "error", err)
				failed++
				errs = multierror.Append(errs, err)
				return nil // one bad file does not abort the walk
			}
			results = append(results, result)
			return nil
		})
	}
	waitErr := g.Wait()
	bar.Finish()
	if waitErr != nil {
		return waitErr
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := getBucketForIndex(tx, indexName, hashesBucketKey)
		if err != nil {
			return err
		}
		for _, r := range results {
			existing, err := getEntry(b, r.hash)
			if err != nil {
				return err
			}
			if existing != nil {
				existing.merge(r.entry)
				r.entry = existing
			}
			if err := putEntry(b, r.hash, r.entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Indexed files", "index", indexName, "indexed", len(results), "failed", failed)
	return errs.ErrorOrNil()
}

// indexFile hashes path and resolves its capture time.
func indexFile(logger hclog.Logger, path string, opts AddOptions) (fileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileResult{}, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	hash, entry, err := makeFileEntry(logger, path, info)
	if err != nil {
		return fileResult{}, err
	}

	doc, err := opts.Source.Extract(path)
	if err != nil {
		entry.Error = err.Error()
		logger.Warn("Failed to extract metadata", "path", path, "error", err)
		return fileResult{hash: hash, entry: entry}, nil
	}

	if sidecar, ok := findTakeoutSidecar(path); ok {
		ts, err := getTakeoutTimestamp(sidecar)
		if err != nil {
			logger.Warn("Ignoring Takeout metadata", "path", sidecar, "error", err)
		} else {
			doc = withTakeoutTime(doc, ts)
			entry.Attachments[filepath.Ext(sidecar)] = sidecar
		}
	}

	ti, err := opts.Resolver.Resolve(doc, gpsFromDocument(doc))
	if err != nil {
		entry.Error = err.Error()
		logger.Debug("No capture time", "path", path, "error", err)
	} else {
		entry.Time = ti
		logger.Trace("Resolved capture time", "path", path, "source", ti.SourceDetails.TimeSource, "confidence", ti.SourceDetails.Confidence)
	}
	return fileResult{hash: hash, entry: entry}, nil
}

// makeFileEntry hashes the file at path and builds a fresh entry for it.
func makeFileEntry(logger hclog.Logger, path string, info os.FileInfo) ([]byte, *indexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, nil, fmt.Errorf("failed to hash %q: %w", path, err)
	}
	hash := h.Sum(nil)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("failed to seek %q: %w", path, err)
	}
	contentType, err := detectContentType(logger, f, info)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %q: %w", path, err)
	}

	entry := newIndexEntry(info.Size(), contentType)
	entry.Paths[path] = struct{}{}
	return hash, entry, nil
}

// detectContentType sniffs the MIME type from the head of the file. Files
// too small to classify get defaultContentType.
func detectContentType(logger hclog.Logger, f io.Reader, info os.FileInfo) (string, error) {
	if info.Size() < 512 {
		return defaultContentType, nil
	}

	head := make([]byte, 512)
	if _, err := io.ReadFull(f, head); err != nil {
		return "", err
	}
	contentType := strings.Split(http.DetectContentType(head), ";")[0]
	logger.Trace("Detected content type", "file", info.Name(), "type", contentType)
	return contentType, nil
}

// collectFiles lists the files under rootPath that should be indexed.
// Takeout sidecars are left out; they ride along as attachments.
func collectFiles(logger hclog.Logger, rootPath string) ([]string, error) {
	var paths []string
	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if isTakeoutSidecar(path) {
			logger.Trace("Skipping Takeout sidecar", "path", path)
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// IndexList prints the name and record count of every index.
func IndexList(logger hclog.Logger, dbPath string, w io.Writer) error {
	db, err := getDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		rows := []string{"Index|Records"}
		for _, name := range listIndexes(tx) {
			b, err := getBucketForIndex(tx, name, hashesBucketKey)
			if err != nil {
				logger.Warn("Skipping malformed index", "index", name, "error", err)
				continue
			}
			rows = append(rows, fmt.Sprintf("%s|%d", name, b.Stats().KeyN))
		}
		_, err := fmt.Fprintln(w, columnize.SimpleFormat(rows))
		return err
	})
}

// catRecord is the JSON form of one index entry.
type catRecord struct {
	Hash        string             `json:"hash"`
	Paths       []string           `json:"paths"`
	Size        int64              `json:"size"`
	ContentType string             `json:"content_type"`
	Time        *timeinfo.TimeInfo `json:"time,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// IndexCat writes every record of an index as one JSON object per line.
func IndexCat(logger hclog.Logger, dbPath, indexName string, w io.Writer) error {
	if indexName == "" {
		return errors.New("index name cannot be empty")
	}

	db, err := getDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	enc := json.NewEncoder(w)
	return db.View(func(tx *bolt.Tx) error {
		b, err := getBucketForIndex(tx, indexName, hashesBucketKey)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			entry, err := decodeEntry(v)
			if err != nil {
				return err
			}
			return enc.Encode(catRecord{
				Hash:        fmt.Sprintf("%x", k),
				Paths:       entry.sortedPaths(),
				Size:        entry.Size,
				ContentType: entry.ContentType,
				Time:        entry.Time,
				Error:       entry.Error,
			})
		})
	})
}

// indexStats summarizes the records of an index.
type indexStats struct {
	hashes     int
	files      int
	dups       int
	bytes      int64
	unresolved int
	types      map[string]int
	confidence map[string]int
	sources    map[string]int
}

func newIndexStats() *indexStats {
	return &indexStats{
		types:      make(map[string]int),
		confidence: make(map[string]int),
		sources:    make(map[string]int),
	}
}

func (s *indexStats) add(entry *indexEntry) {
	s.hashes++
	s.bytes += entry.Size
	s.files += len(entry.Paths)
	if len(entry.Paths) > 1 {
		s.dups++
	}
	s.types[entry.ContentType]++
	if entry.Time == nil {
		s.unresolved++
		return
	}
	s.confidence[string(entry.Time.SourceDetails.Confidence)]++
	s.sources[entry.Time.SourceDetails.TimeSource]++
}

func histogram(header string, counts map[string]int) string {
	var rows []string
	for k, n := range counts {
		rows = append(rows, fmt.Sprintf("%s|%d", k, n))
	}
	sort.Strings(rows)
	return columnize.SimpleFormat(append([]string{header}, rows...))
}

// IndexStats prints content type, confidence and time source histograms for
// an index.
func IndexStats(logger hclog.Logger, dbPath, indexName string, w io.Writer) error {
	if indexName == "" {
		return errors.New("index name cannot be empty")
	}

	db, err := getDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	stats := newIndexStats()
	err = db.View(func(tx *bolt.Tx) error {
		b, err := getBucketForIndex(tx, indexName, hashesBucketKey)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			entry, err := decodeEntry(v)
			if err != nil {
				return err
			}
			stats.add(entry)
			return nil
		})
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, histogram("File Type|Hash Count", stats.types))
	fmt.Fprintln(w)
	fmt.Fprintln(w, histogram("Confidence|Hash Count", stats.confidence))
	fmt.Fprintln(w)
	fmt.Fprintln(w, histogram("Time Source|Hash Count", stats.sources))
	fmt.Fprintln(w)
	_, err = fmt.Fprintf(w, "%d hashes for %d files (%d hashes with duplicates, %d without a capture time); %d bytes total\n",
		stats.hashes, stats.files, stats.dups, stats.unresolved, stats.bytes)
	return err
}

// IndexDelete removes an index and all of its records.
func IndexDelete(logger hclog.Logger, dbPath, indexName string) error {
	if indexName == "" {
		return errors.New("index name cannot be empty")
	}

	db, err := getDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		if !bucketExistsForIndex(tx, indexName) {
			return fmt.Errorf("index %q does not exist", indexName)
		}
		logger.Debug("Deleting index", "index", indexName)
		return deleteBucketForIndex(tx, indexName)
	})
}
