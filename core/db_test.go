package core

import (
	"bytes"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/slackpad/stamp/timeinfo"
	bolt "go.etcd.io/bbolt"
)

// initTestDatabase creates an empty database in a temporary directory and
// returns its path.
func initTestDatabase(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "stamp.db")
	if err := CreateDB(hclog.NewNullLogger(), dbPath); err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	return dbPath
}

// setupTestDatabase is initTestDatabase plus an open handle. The cleanup
// closes the handle so other functions can open the file.
func setupTestDatabase(t *testing.T) (*bolt.DB, string, func()) {
	t.Helper()

	dbPath := initTestDatabase(t)
	db, err := getDB(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db, dbPath, func() { db.Close() }
}

func createTestIndex(t *testing.T, db *bolt.DB, indexName string, hashes map[string]*indexEntry) {
	t.Helper()

	err := db.Update(func(tx *bolt.Tx) error {
		bucket, err := getBucketForIndex(tx, indexName, hashesBucketKey)
		if err != nil {
			return err
		}

		for hashStr, entry := range hashes {
			if err := putEntry(bucket, []byte(hashStr), entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to create test index: %v", err)
	}
}

// resolvedAt builds a TimeInfo for a capture at local wall time with the
// given offset from UTC.
func resolvedAt(local time.Time, offsetSeconds int, confidence timeinfo.Confidence) *timeinfo.TimeInfo {
	utc := local.Add(-time.Duration(offsetSeconds) * time.Second)
	return &timeinfo.TimeInfo{
		UTC:   &utc,
		Local: local,
		Timezone: &timeinfo.TimeZoneInfo{
			Name:          timeinfo.FormatOffset(offsetSeconds),
			OffsetSeconds: offsetSeconds,
			Source:        "OffsetTimeOriginal",
		},
		SourceDetails: timeinfo.SourceDetails{
			TimeSource: "DateTimeOriginal",
			Confidence: confidence,
		},
	}
}

func TestIndexEntry_Merge(t *testing.T) {
	local := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	low := &timeinfo.TimeInfo{Local: local, SourceDetails: timeinfo.SourceDetails{TimeSource: "FileName", Confidence: timeinfo.Low}}
	high := resolvedAt(local, 7200, timeinfo.High)

	tests := []struct {
		name      string
		entry     *indexEntry
		other     *indexEntry
		wantNil   bool
		wantPath  int
		wantAtt   int
		wantTime  *timeinfo.TimeInfo
		wantError string
	}{
		{
			name:    "merge with nil entry",
			entry:   nil,
			other:   &indexEntry{Paths: map[string]struct{}{"path1": {}}},
			wantNil: true,
		},
		{
			name:     "merge with nil other",
			entry:    &indexEntry{Paths: map[string]struct{}{"path1": {}}},
			other:    nil,
			wantPath: 1,
		},
		{
			name: "merge paths and attachments",
			entry: &indexEntry{
				Paths:       map[string]struct{}{"path1": {}},
				Attachments: map[string]string{".json": "meta1.json"},
			},
			other: &indexEntry{
				Paths:       map[string]struct{}{"path2": {}},
				Attachments: map[string]string{".xml": "meta2.xml"},
			},
			wantPath: 2,
			wantAtt:  2,
		},
		{
			name:  "merge into decoded entry without maps",
			entry: &indexEntry{},
			other: &indexEntry{
				Paths:       map[string]struct{}{"path1": {}, "path2": {}},
				Attachments: map[string]string{".json": "meta.json"},
			},
			wantPath: 2,
			wantAtt:  1,
		},
		{
			name:      "resolved time replaces failure",
			entry:     &indexEntry{Paths: map[string]struct{}{"path1": {}}, Error: "no usable time metadata extracted"},
			other:     &indexEntry{Paths: map[string]struct{}{"path2": {}}, Time: low},
			wantPath:  2,
			wantTime:  low,
			wantError: "",
		},
		{
			name:     "higher confidence wins",
			entry:    &indexEntry{Paths: map[string]struct{}{"path1": {}}, Time: low},
			other:    &indexEntry{Paths: map[string]struct{}{"path1": {}}, Time: high},
			wantPath: 1,
			wantTime: high,
		},
		{
			name:     "lower confidence does not replace",
			entry:    &indexEntry{Paths: map[string]struct{}{"path1": {}}, Time: high},
			other:    &indexEntry{Paths: map[string]struct{}{"path2": {}}, Time: low},
			wantPath: 2,
			wantTime: high,
		},
		{
			name:      "failure kept when nothing resolves",
			entry:     &indexEntry{Paths: map[string]struct{}{"path1": {}}},
			other:     &indexEntry{Paths: map[string]struct{}{"path2": {}}, Error: "exiftool failed"},
			wantPath:  2,
			wantError: "exiftool failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.merge(tt.other)
			if tt.wantNil {
				return
			}
			if len(tt.entry.Paths) != tt.wantPath {
				t.Errorf("merge() paths = %v, want %v", len(tt.entry.Paths), tt.wantPath)
			}
			if len(tt.entry.Attachments) != tt.wantAtt {
				t.Errorf("merge() attachments = %v, want %v", len(tt.entry.Attachments), tt.wantAtt)
			}
			if tt.entry.Time != tt.wantTime {
				t.Errorf("merge() time = %+v, want %+v", tt.entry.Time, tt.wantTime)
			}
			if tt.entry.Error != tt.wantError {
				t.Errorf("merge() error = %q, want %q", tt.entry.Error, tt.wantError)
			}
		})
	}
}

func TestEncodeDecodeEntry(t *testing.T) {
	ti := resolvedAt(time.Date(2024, 7, 1, 15, 0, 0, 500, time.UTC), 7200, timeinfo.High)
	entry := &indexEntry{
		Paths:       map[string]struct{}{"path1": {}, "path2": {}},
		Attachments: map[string]string{".json": "meta.json"},
		Size:        1024,
		ContentType: "image/jpeg",
		Time:        ti,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		t.Fatalf("failed to encode entry: %v", err)
	}

	decoded, err := decodeEntry(buf.Bytes())
	if err != nil {
		t.Fatalf("failed to decode entry: %v", err)
	}

	if decoded.Size != entry.Size {
		t.Errorf("decoded Size = %v, want %v", decoded.Size, entry.Size)
	}
	if decoded.ContentType != entry.ContentType {
		t.Errorf("decoded ContentType = %v, want %v", decoded.ContentType, entry.ContentType)
	}
	if len(decoded.Paths) != len(entry.Paths) {
		t.Errorf("decoded Paths length = %v, want %v", len(decoded.Paths), len(entry.Paths))
	}
	if len(decoded.Attachments) != len(entry.Attachments) {
		t.Errorf("decoded Attachments length = %v, want %v", len(decoded.Attachments), len(entry.Attachments))
	}
	if decoded.Time == nil {
		t.Fatal("decoded Time is nil")
	}
	if !decoded.Time.UTC.Equal(*ti.UTC) {
		t.Errorf("decoded UTC = %v, want %v", decoded.Time.UTC, ti.UTC)
	}
	if !decoded.Time.Local.Equal(ti.Local) {
		t.Errorf("decoded Local = %v, want %v", decoded.Time.Local, ti.Local)
	}
	if *decoded.Time.Timezone != *ti.Timezone {
		t.Errorf("decoded Timezone = %+v, want %+v", decoded.Time.Timezone, ti.Timezone)
	}
	if decoded.Time.SourceDetails != ti.SourceDetails {
		t.Errorf("decoded SourceDetails = %+v, want %+v", decoded.Time.SourceDetails, ti.SourceDetails)
	}
}

func TestEncodeDecodeEntry_Unresolved(t *testing.T) {
	db, _, cleanup := setupTestDatabase(t)
	defer cleanup()

	createTestIndex(t, db, "test-index", map[string]*indexEntry{
		"hash": {
			Paths: map[string]struct{}{"/photos/a.jpg": {}},
			Error: timeinfo.ErrExtraction.Error(),
		},
	})

	err := db.View(func(tx *bolt.Tx) error {
		b, err := getBucketForIndex(tx, "test-index", hashesBucketKey)
		if err != nil {
			return err
		}
		entry, err := getEntry(b, []byte("hash"))
		if err != nil {
			return err
		}
		if entry == nil {
			t.Fatal("entry not found")
		}
		if entry.Time != nil {
			t.Errorf("entry.Time = %+v, want nil", entry.Time)
		}
		if entry.Error != timeinfo.ErrExtraction.Error() {
			t.Errorf("entry.Error = %q", entry.Error)
		}

		missing, err := getEntry(b, []byte("other"))
		if err != nil {
			return err
		}
		if missing != nil {
			t.Errorf("getEntry() = %+v for a missing hash", missing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction error = %v", err)
	}
}

func TestDecodeEntry_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{
			name:    "empty data",
			data:    []byte{},
			wantErr: true,
		},
		{
			name:    "invalid gob data",
			data:    []byte{0xFF, 0xFF, 0xFF},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEntry(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stamp.db")
	logger := hclog.NewNullLogger()

	if err := CreateDB(logger, dbPath); err != nil {
		t.Fatalf("CreateDB() error = %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created")
	}

	if err := CreateDB(logger, dbPath); err == nil {
		t.Error("CreateDB() expected error for existing database")
	}
}

func TestGetDB_NotInitialized(t *testing.T) {
	_, err := getDB(filepath.Join(t.TempDir(), "missing.db"))
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("getDB() error = %v, want %v", err, ErrNotInitialized)
	}
}

func TestBucketOperations(t *testing.T) {
	db, _, cleanup := setupTestDatabase(t)
	defer cleanup()

	err := db.Update(func(tx *bolt.Tx) error {
		bucket, err := getBucketForIndex(tx, "test-index", hashesBucketKey)
		if err != nil {
			return err
		}
		if bucket == nil {
			t.Error("getBucketForIndex() returned nil bucket")
		}
		if !bucketExistsForIndex(tx, "test-index") {
			t.Error("bucketExistsForIndex() = false, want true")
		}
		if bucketExistsForIndex(tx, "other-index") {
			t.Error("bucketExistsForIndex() = true for a missing index")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction error = %v", err)
	}

	err = db.View(func(tx *bolt.Tx) error {
		bucket, err := getBucketForIndex(tx, "test-index", hashesBucketKey)
		if err != nil {
			return err
		}
		if bucket == nil {
			t.Error("getBucketForIndex() in read tx returned nil bucket")
		}

		if _, err := getBucketForIndex(tx, "other-index", hashesBucketKey); err == nil {
			t.Error("getBucketForIndex() expected error for missing index in read tx")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read transaction error = %v", err)
	}
}

func TestListIndexes(t *testing.T) {
	db, _, cleanup := setupTestDatabase(t)
	defer cleanup()

	for _, name := range []string{"trip", "archive", "phone"} {
		createTestIndex(t, db, name, map[string]*indexEntry{})
	}

	err := db.View(func(tx *bolt.Tx) error {
		got := listIndexes(tx)
		want := []string{"archive", "phone", "trip"}
		if len(got) != len(want) {
			t.Fatalf("listIndexes() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("listIndexes()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read transaction error = %v", err)
	}
}

func TestDeleteBucketForIndex(t *testing.T) {
	db, _, cleanup := setupTestDatabase(t)
	defer cleanup()

	createTestIndex(t, db, "test-index", map[string]*indexEntry{})

	err := db.Update(func(tx *bolt.Tx) error {
		return deleteBucketForIndex(tx, "test-index")
	})
	if err != nil {
		t.Fatalf("deleteBucketForIndex() error = %v", err)
	}

	err = db.View(func(tx *bolt.Tx) error {
		if bucketExistsForIndex(tx, "test-index") {
			t.Error("index still exists after deletion")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verification error = %v", err)
	}
}

func TestGetEntry_Errors(t *testing.T) {
	tests := []struct {
		name    string
		bucket  *bolt.Bucket
		hash    []byte
		wantErr bool
	}{
		{
			name:    "nil bucket",
			bucket:  nil,
			hash:    []byte("test"),
			wantErr: true,
		},
		{
			name:    "empty hash",
			bucket:  &bolt.Bucket{}, // never touched, the hash is checked first
			hash:    []byte{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := getEntry(tt.bucket, tt.hash)
			if (err != nil) != tt.wantErr {
				t.Errorf("getEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPutEntry_Errors(t *testing.T) {
	tests := []struct {
		name    string
		bucket  *bolt.Bucket
		hash    []byte
		entry   *indexEntry
		wantErr bool
	}{
		{
			name:    "nil bucket",
			bucket:  nil,
			hash:    []byte("test"),
			entry:   &indexEntry{},
			wantErr: true,
		},
		{
			name:    "empty hash",
			bucket:  &bolt.Bucket{},
			hash:    []byte{},
			entry:   &indexEntry{},
			wantErr: true,
		},
		{
			name:    "nil entry",
			bucket:  &bolt.Bucket{},
			hash:    []byte("test"),
			entry:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := putEntry(tt.bucket, tt.hash, tt.entry)
			if (err != nil) != tt.wantErr {
				t.Errorf("putEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
