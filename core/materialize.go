package core

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/hashicorp/go-hclog"
	bolt "go.etcd.io/bbolt"
)

// undatedDir holds files without a resolved capture time.
const undatedDir = "_undated"

// Materialize copies every file of an index into rootPath, laid out by
// capture date as YYYY/MM/DD/<hash><ext>. Each copy's modification time is
// set to the resolved UTC instant when there is one.
func Materialize(logger hclog.Logger, dbPath, indexName, rootPath string) error {
	if indexName == "" {
		return errors.New("index name cannot be empty")
	}
	if rootPath == "" {
		return errors.New("root path cannot be empty")
	}

	db, err := getDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		b, err := getBucketForIndex(tx, indexName, hashesBucketKey)
		if err != nil {
			return err
		}

		bar := pb.StartNew(b.Stats().KeyN)
		defer bar.Finish()
		return b.ForEach(func(k, v []byte) error {
			defer bar.Increment()

			entry, err := decodeEntry(v)
			if err != nil {
				return err
			}
			paths := entry.sortedPaths()
			if len(paths) == 0 {
				return nil
			}

			dir := materializedDir(rootPath, entry)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}

			src := paths[0]
			ext := filepath.Ext(src)
			dst := filepath.Join(dir, fmt.Sprintf("%x%s", k, ext))
			if _, err := os.Stat(dst); err == nil {
				logger.Debug("Skipping copy of existing file", "path", src)
				return nil
			} else if !os.IsNotExist(err) {
				return err
			}

			var mtime time.Time
			if entry.Time != nil && entry.Time.UTC != nil {
				mtime = *entry.Time.UTC
			}
			if err := copyFileWithHash(k, src, dst, mtime); err != nil {
				return fmt.Errorf("failed to copy %q: %w", src, err)
			}

			for attExt, att := range entry.Attachments {
				attDst := filepath.Join(dir, fmt.Sprintf("%x%s%s", k, ext, attExt))
				if err := copyFile(att, attDst); err != nil {
					logger.Warn("Failed to copy attachment", "path", att, "error", err)
				}
			}
			return nil
		})
	})
}

// materializedDir is where an entry lands under rootPath.
func materializedDir(rootPath string, entry *indexEntry) string {
	if entry.Time == nil {
		return filepath.Join(rootPath, undatedDir)
	}
	local := entry.Time.Local
	return filepath.Join(rootPath,
		fmt.Sprintf("%04d", local.Year()),
		fmt.Sprintf("%02d", int(local.Month())),
		fmt.Sprintf("%02d", local.Day()))
}

// copyFile copies src to dst through a temporary file in dst's directory.
func copyFile(src, dst string) error {
	if src == "" || dst == "" {
		return errors.New("source and destination cannot be empty")
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := writeTemp(filepath.Dir(dst), in)
	if err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// copyFileWithHash copies src to dst and fails, leaving nothing behind, if
// the content does not hash to hash. The copy's times are set to mtime, or
// to the source's modification time when mtime is zero.
func copyFileWithHash(hash []byte, src, dst string, mtime time.Time) error {
	if len(hash) == 0 {
		return errors.New("hash cannot be empty")
	}
	if src == "" || dst == "" {
		return errors.New("source and destination cannot be empty")
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	h := sha256.New()
	tmp, err := writeTemp(filepath.Dir(dst), io.TeeReader(in, h))
	if err != nil {
		return err
	}

	// A mismatch means the index is stale; keep it out of the layout.
	if !bytes.Equal(hash, h.Sum(nil)) {
		os.Remove(tmp)
		return fmt.Errorf("hash does not match, index is stale")
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}

	if mtime.IsZero() {
		info, err := os.Stat(src)
		if err != nil {
			return err
		}
		mtime = info.ModTime()
	}
	return os.Chtimes(dst, mtime, mtime)
}

// writeTemp writes r to a new temporary file in dir and returns its name.
func writeTemp(dir string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(dir, ".stamp-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
