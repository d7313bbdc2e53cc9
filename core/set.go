package core

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	bolt "go.etcd.io/bbolt"
)

// combineFunc fills out from the records of a and b.
type combineFunc func(a, b, out *bolt.Bucket) (int, error)

// SetUnion makes indexName from every record in A or B. Records in both get
// their paths combined and keep the more confident capture time.
func SetUnion(logger hclog.Logger, dbPath, indexName, indexNameA, indexNameB string) error {
	return setOperation(logger, dbPath, indexName, indexNameA, indexNameB, union)
}

// SetIntersection makes indexName from the records in both A and B.
func SetIntersection(logger hclog.Logger, dbPath, indexName, indexNameA, indexNameB string) error {
	return setOperation(logger, dbPath, indexName, indexNameA, indexNameB, intersect)
}

// SetDifference makes indexName from the records in A that are not in B.
func SetDifference(logger hclog.Logger, dbPath, indexName, indexNameA, indexNameB string) error {
	return setOperation(logger, dbPath, indexName, indexNameA, indexNameB, subtract)
}

func setOperation(logger hclog.Logger, dbPath, indexName, indexNameA, indexNameB string, combine combineFunc) error {
	if indexName == "" || indexNameA == "" || indexNameB == "" {
		return errors.New("index names cannot be empty")
	}

	db, err := getDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		if bucketExistsForIndex(tx, indexName) {
			return fmt.Errorf("index %q already exists", indexName)
		}
		for _, name := range []string{indexNameA, indexNameB} {
			if !bucketExistsForIndex(tx, name) {
				return fmt.Errorf("index %q does not exist", name)
			}
		}

		a, err := getBucketForIndex(tx, indexNameA, hashesBucketKey)
		if err != nil {
			return err
		}
		b, err := getBucketForIndex(tx, indexNameB, hashesBucketKey)
		if err != nil {
			return err
		}
		out, err := getBucketForIndex(tx, indexName, hashesBucketKey)
		if err != nil {
			return err
		}

		n, err := combine(a, b, out)
		if err != nil {
			return err
		}
		logger.Info("Created index", "index", indexName, "records", n)
		return nil
	})
}

func union(a, b, out *bolt.Bucket) (int, error) {
	n, err := intersectOrCopy(a, b, out, true)
	if err != nil {
		return 0, err
	}

	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if a.Get(k) != nil {
			continue // merged above
		}
		if err := out.Put(k, v); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func intersect(a, b, out *bolt.Bucket) (int, error) {
	return intersectOrCopy(a, b, out, false)
}

// intersectOrCopy writes the records of a merged with their match in b. A
// record without a match is copied when keepUnmatched is set and dropped
// otherwise.
func intersectOrCopy(a, b, out *bolt.Bucket, keepUnmatched bool) (int, error) {
	n := 0
	c := a.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		other, err := getEntry(b, k)
		if err != nil {
			return 0, err
		}
		if other == nil {
			if !keepUnmatched {
				continue
			}
			if err := out.Put(k, v); err != nil {
				return 0, err
			}
			n++
			continue
		}

		entry, err := decodeEntry(v)
		if err != nil {
			return 0, err
		}
		entry.merge(other)
		if err := putEntry(out, k, entry); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func subtract(a, b, out *bolt.Bucket) (int, error) {
	n := 0
	c := a.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if b.Get(k) != nil {
			continue
		}
		if err := out.Put(k, v); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}
