package store

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketProfiles = []byte("profiles")
	bucketVectors  = []byte("vectors")
	bucketMeta     = []byte("meta")
)

// DB is the bbolt file shared by the vector index and the profile ledger.
type DB struct {
	db *bbolt.DB
}

func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketProfiles, bucketVectors, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

func (d *DB) Bolt() *bbolt.DB {
	return d.db
}

func (d *DB) Path() string {
	return d.db.Path()
}

func (d *DB) Close() error {
	return d.db.Close()
}
