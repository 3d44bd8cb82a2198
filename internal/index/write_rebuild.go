package index

import (
	"strings"

	bolt "go.etcd.io/bbolt"
)

// Fingerprints returns the render hash recorded for every pathname by the
// previous export.
func (s *Store) Fingerprints() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bFingerprints)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			out[strings.TrimPrefix(string(k), "/")] = string(v)
			return nil
		})
	})
	return out, err
}

// RebuildFingerprints replaces the recorded fingerprints with fps, so routes
// that disappeared from the site are forgotten.
func (s *Store) RebuildFingerprints(fps map[string]string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_ = tx.DeleteBucket(bFingerprints)
		b, err := tx.CreateBucket(bFingerprints)
		if err != nil {
			return err
		}
		for pathname, hash := range fps {
			// the root pathname is "", which bbolt rejects as a key
			if err := b.Put(fingerprintKey(pathname), []byte(hash)); err != nil {
				return err
			}
		}
		return nil
	})
}

func fingerprintKey(pathname string) []byte {
	return []byte("/" + pathname)
}
