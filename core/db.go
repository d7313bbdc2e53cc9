package core

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/slackpad/stamp/timeinfo"
	bolt "go.etcd.io/bbolt"
)

// ErrNotInitialized is returned when the database file does not exist yet.
var ErrNotInitialized = errors.New("stamp has not been initialized")

const (
	indexesBucketKey = "INDEXES"
	hashesBucketKey  = "HASHES"
)

// indexEntry is one distinct file content in an index, keyed by its hash.
type indexEntry struct {
	Paths map[string]struct{}

	// Attachments maps an extension to a sidecar file that travels with the
	// content, e.g. ".json" for a Takeout metadata file.
	Attachments map[string]string

	Size        int64
	ContentType string

	// Time is the resolved capture time, nil when resolution failed.
	Time *timeinfo.TimeInfo

	// Error says why Time is missing.
	Error string
}

func newIndexEntry(size int64, contentType string) *indexEntry {
	return &indexEntry{
		Paths:       make(map[string]struct{}),
		Attachments: make(map[string]string),
		Size:        size,
		ContentType: contentType,
	}
}

// merge folds other into e. A resolved time replaces a failed one, and a
// more confident resolution replaces a less confident one.
func (e *indexEntry) merge(other *indexEntry) {
	if e == nil || other == nil {
		return
	}
	if e.Paths == nil {
		e.Paths = make(map[string]struct{})
	}
	for p := range other.Paths {
		e.Paths[p] = struct{}{}
	}
	if e.Attachments == nil {
		e.Attachments = make(map[string]string)
	}
	for ext, p := range other.Attachments {
		e.Attachments[ext] = p
	}

	if other.Time != nil && (e.Time == nil || confidenceRank(other.Time.SourceDetails.Confidence) > confidenceRank(e.Time.SourceDetails.Confidence)) {
		e.Time = other.Time
		e.Error = ""
	}
	if e.Time == nil && other.Error != "" {
		e.Error = other.Error
	}
}

func confidenceRank(c timeinfo.Confidence) int {
	switch c {
	case timeinfo.High:
		return 3
	case timeinfo.Medium:
		return 2
	case timeinfo.Low:
		return 1
	default:
		return 0
	}
}

// sortedPaths returns the entry's paths in a stable order.
func (e *indexEntry) sortedPaths() []string {
	paths := make([]string, 0, len(e.Paths))
	for p := range e.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// CreateDB creates an empty database at dbPath. It fails if one exists.
func CreateDB(logger hclog.Logger, dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("database %q already exists", dbPath)
	}

	db, err := bolt.Open(dbPath, 0666, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Debug("Created database", "path", dbPath)
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(indexesBucketKey))
		return err
	})
}

func getDB(dbPath string) (*bolt.DB, error) {
	_, err := os.Stat(dbPath)
	if os.IsNotExist(err) {
		return nil, ErrNotInitialized
	}

	db, err := bolt.Open(dbPath, 0666, nil)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func getBucketForIndexes(tx *bolt.Tx) (*bolt.Bucket, error) {
	containerKey := []byte(indexesBucketKey)

	if tx.Writable() {
		return tx.CreateBucketIfNotExists(containerKey)
	}

	all := tx.Bucket(containerKey)
	if all == nil {
		return nil, fmt.Errorf("no indexes have been created")
	}
	return all, nil
}

func getBucketForIndex(tx *bolt.Tx, indexName, subName string) (*bolt.Bucket, error) {
	indexKey := []byte(indexName)
	subKey := []byte(subName)

	all, err := getBucketForIndexes(tx)
	if err != nil {
		return nil, err
	}

	if tx.Writable() {
		b, err := all.CreateBucketIfNotExists(indexKey)
		if err != nil {
			return nil, err
		}
		return b.CreateBucketIfNotExists(subKey)
	}

	b := all.Bucket(indexKey)
	if b == nil {
		return nil, fmt.Errorf("index %q does not exist", indexName)
	}

	s := b.Bucket(subKey)
	if s == nil {
		return nil, fmt.Errorf("index %q is not well-formed", indexName)
	}
	return s, nil
}

func bucketExistsForIndex(tx *bolt.Tx, indexName string) bool {
	all := tx.Bucket([]byte(indexesBucketKey))
	if all == nil {
		return false
	}
	return all.Bucket([]byte(indexName)) != nil
}

func deleteBucketForIndex(tx *bolt.Tx, indexName string) error {
	all, err := tx.CreateBucketIfNotExists([]byte(indexesBucketKey))
	if err != nil {
		return err
	}
	return all.DeleteBucket([]byte(indexName))
}

// listIndexes returns the names of all indexes, sorted.
func listIndexes(tx *bolt.Tx) []string {
	all := tx.Bucket([]byte(indexesBucketKey))
	if all == nil {
		return nil
	}

	var names []string
	all.ForEachBucket(func(k []byte) error {
		names = append(names, string(k))
		return nil
	})
	return names
}

func getEntry(b *bolt.Bucket, hash []byte) (*indexEntry, error) {
	if b == nil {
		return nil, errors.New("bucket cannot be nil")
	}
	if len(hash) == 0 {
		return nil, errors.New("hash cannot be empty")
	}

	v := b.Get(hash)
	if v == nil {
		return nil, nil
	}
	return decodeEntry(v)
}

func putEntry(b *bolt.Bucket, hash []byte, entry *indexEntry) error {
	if b == nil {
		return errors.New("bucket cannot be nil")
	}
	if len(hash) == 0 {
		return errors.New("hash cannot be empty")
	}
	if entry == nil {
		return errors.New("entry cannot be nil")
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	return b.Put(hash, buf.Bytes())
}

func decodeEntry(v []byte) (*indexEntry, error) {
	var entry indexEntry
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	return &entry, nil
}
