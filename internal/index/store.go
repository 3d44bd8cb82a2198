package index

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *bolt.DB
}

type OpenOptions struct {
	Path string // e.g. ".pagerouter/index.db"
}

func Open(opt OpenOptions) (*Store, error) {
	if opt.Path == "" {
		return nil, errors.New("index: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(opt.Path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(opt.Path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bDocs, bFingerprints, bBuilds} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Documents exposes the compiled document bucket as a cache backend.
func (s *Store) Documents() *BucketBackend {
	return &BucketBackend{db: s.db, bucket: bDocs}
}

// BucketBackend stores opaque values in one bucket.
type BucketBackend struct {
	db     *bolt.DB
	bucket []byte
}

func (b *BucketBackend) Load(key string) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.bucket)
		if bk == nil {
			return nil
		}
		if v := bk.Get([]byte(key)); v != nil {
			// bbolt values are only valid inside the transaction
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, out != nil, err
}

func (b *BucketBackend) Store(key string, val []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return err
		}
		return bk.Put([]byte(key), val)
	})
}

// BuildRecord summarizes the last static export.
type BuildRecord struct {
	ID       string    `json:"id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Routes   int       `json:"routes"`
	Written  int       `json:"written"`
	Skipped  int       `json:"skipped"`
}

func (s *Store) RecordBuild(rec BuildRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bBuilds).Put(keyLastBuild, raw)
	})
}

func (s *Store) LastBuild() (BuildRecord, error) {
	var rec BuildRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bBuilds).Get(keyLastBuild)
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}
