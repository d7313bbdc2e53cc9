package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/slackpad/stamp/meta"
	"github.com/slackpad/stamp/timeinfo"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
}

func takeoutSidecar(title, timestamp string) string {
	return `{
		"title": "` + title + `",
		"photoTakenTime": {
			"timestamp": "` + timestamp + `",
			"formatted": "Jan 1, 2021, 12:00:00 AM UTC"
		},
		"creationTime": {
			"timestamp": "1609459200"
		}
	}`
}

func TestGetTakeoutTimestamp(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name      string
		content   string
		wantTS    int64
		wantErr   bool
		setupFile bool
	}{
		{
			name:      "valid metadata",
			content:   takeoutSidecar("IMG_1234.jpg", "1609459200"),
			wantTS:    1609459200,
			setupFile: true,
		},
		{
			name:      "zero timestamp",
			content:   takeoutSidecar("IMG_1234.jpg", "0"),
			wantTS:    0,
			setupFile: true,
		},
		{
			name:      "negative timestamp",
			content:   takeoutSidecar("IMG_1234.jpg", "-1"),
			wantTS:    -1,
			setupFile: true,
		},
		{
			name:      "missing timestamp",
			content:   takeoutSidecar("IMG_1234.jpg", ""),
			wantErr:   true,
			setupFile: true,
		},
		{
			name:      "invalid timestamp format",
			content:   takeoutSidecar("IMG_1234.jpg", "yesterday"),
			wantErr:   true,
			setupFile: true,
		},
		{
			name:      "overflow timestamp",
			content:   takeoutSidecar("IMG_1234.jpg", "99999999999999999999"),
			wantErr:   true,
			setupFile: true,
		},
		{
			name:      "no photoTakenTime",
			content:   `{"title": "IMG_1234.jpg"}`,
			wantErr:   true,
			setupFile: true,
		},
		{
			name: "malformed JSON",
			content: `{
				"title": "IMG_1234.jpg",
				"photoTakenTime": {
			}`,
			wantErr:   true,
			setupFile: true,
		},
		{
			name:    "file does not exist",
			wantErr: true,
		},
		{
			name:    "empty path",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var filePath string
			if tt.setupFile {
				filePath = filepath.Join(tmpDir, tt.name+".json")
				writeTestFile(t, filePath, tt.content)
			} else if tt.name != "empty path" {
				filePath = filepath.Join(tmpDir, "nonexistent.json")
			}

			got, err := getTakeoutTimestamp(filePath)
			if (err != nil) != tt.wantErr {
				t.Errorf("getTakeoutTimestamp() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			want := time.Unix(tt.wantTS, 0).UTC()
			if !got.Equal(want) {
				t.Errorf("getTakeoutTimestamp() = %v, want %v", got, want)
			}
			if got.Location() != time.UTC {
				t.Errorf("getTakeoutTimestamp() location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestFindTakeoutSidecar(t *testing.T) {
	tmpDir := t.TempDir()

	legacy := filepath.Join(tmpDir, "legacy.jpg")
	writeTestFile(t, legacy, "jpeg")
	writeTestFile(t, legacy+".json", takeoutSidecar("legacy.jpg", "1609459200"))

	both := filepath.Join(tmpDir, "both.jpg")
	writeTestFile(t, both, "jpeg")
	writeTestFile(t, both+".json", takeoutSidecar("both.jpg", "1609459200"))
	writeTestFile(t, both+".supplemental-metadata.json", takeoutSidecar("both.jpg", "1609459200"))

	bare := filepath.Join(tmpDir, "bare.jpg")
	writeTestFile(t, bare, "jpeg")

	dir := filepath.Join(tmpDir, "dir.jpg")
	writeTestFile(t, dir, "jpeg")
	if err := os.MkdirAll(dir+".json", 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		want   string
		wantOK bool
	}{
		{
			name:   "legacy suffix",
			path:   legacy,
			want:   legacy + ".json",
			wantOK: true,
		},
		{
			name:   "supplemental suffix preferred",
			path:   both,
			want:   both + ".supplemental-metadata.json",
			wantOK: true,
		},
		{
			name: "no sidecar",
			path: bare,
		},
		{
			name: "directory is not a sidecar",
			path: dir,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findTakeoutSidecar(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("findTakeoutSidecar() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("findTakeoutSidecar() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTakeoutSidecar(t *testing.T) {
	tmpDir := t.TempDir()

	photo := filepath.Join(tmpDir, "IMG_0001.jpg")
	writeTestFile(t, photo, "jpeg")
	writeTestFile(t, photo+".json", takeoutSidecar("IMG_0001.jpg", "1609459200"))
	writeTestFile(t, photo+".supplemental-metadata.json", takeoutSidecar("IMG_0001.jpg", "1609459200"))
	orphan := filepath.Join(tmpDir, "orphan.jpg.json")
	writeTestFile(t, orphan, takeoutSidecar("orphan.jpg", "1609459200"))
	dump := filepath.Join(tmpDir, "metadata.json")
	writeTestFile(t, dump, "[]")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"media file", photo, false},
		{"legacy sidecar", photo + ".json", true},
		{"supplemental sidecar", photo + ".supplemental-metadata.json", true},
		{"sidecar without media", orphan, false},
		{"plain JSON file", dump, false},
		{"bare suffix", filepath.Join(tmpDir, ".json"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTakeoutSidecar(tt.path); got != tt.want {
				t.Errorf("isTakeoutSidecar(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWithTakeoutTime(t *testing.T) {
	doc := meta.FromAny(map[string]any{
		"SourceFile": "/photos/IMG_0001.jpg",
		"Time": map[string]any{
			"DateTimeOriginal": "2021:01:01 01:00:00",
		},
	})
	ts := time.Date(2021, 1, 1, 0, 0, 0, 0, time.FixedZone("", 3600))

	got := withTakeoutTime(doc, ts)

	s, ok := got.StringField(timeinfo.TakeoutGroup, timeinfo.PhotoTakenTimeField)
	if !ok {
		t.Fatal("Takeout time was not added")
	}
	if s != "2020-12-31T23:00:00Z" {
		t.Errorf("Takeout time = %q, want %q", s, "2020-12-31T23:00:00Z")
	}
	if local, _ := got.StringField("Time", "DateTimeOriginal"); local != "2021:01:01 01:00:00" {
		t.Errorf("DateTimeOriginal = %q, existing fields must survive", local)
	}
	if meta.SourceFile(got) != "/photos/IMG_0001.jpg" {
		t.Errorf("SourceFile = %q", meta.SourceFile(got))
	}
	if _, ok := doc.StringField(timeinfo.TakeoutGroup, timeinfo.PhotoTakenTimeField); ok {
		t.Error("withTakeoutTime() modified its input")
	}
}

func TestTakeoutTime_Resolves(t *testing.T) {
	tmpDir := t.TempDir()
	photo := filepath.Join(tmpDir, "IMG_0001.jpg")
	writeTestFile(t, photo, "jpeg")
	writeTestFile(t, photo+".json", takeoutSidecar("IMG_0001.jpg", "1609502400"))

	sidecar, ok := findTakeoutSidecar(photo)
	if !ok {
		t.Fatal("sidecar not found")
	}
	ts, err := getTakeoutTimestamp(sidecar)
	if err != nil {
		t.Fatalf("getTakeoutTimestamp() error = %v", err)
	}

	ti, err := testResolver().Resolve(withTakeoutTime(meta.Map(nil), ts), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)
	if ti.UTC == nil || !ti.UTC.Equal(want) {
		t.Errorf("UTC = %v, want %v", ti.UTC, want)
	}
	if ti.SourceDetails.Confidence != timeinfo.High {
		t.Errorf("Confidence = %v, want %v", ti.SourceDetails.Confidence, timeinfo.High)
	}
}
