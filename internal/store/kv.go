// Package store implements the persistence layer behind the four state
// files spec.md §6 names: previous, journal, exclusions, manifest. journal
// and manifest are backed by an embedded bbolt database — exactly the role
// the teacher gives bbolt in backend/cache/storage_persistent.go, used here
// for the journal's FRN map and the manifest's hash→paths index instead of
// the teacher's directory-listing cache. previous and exclusions stay flat
// text files per spec.md's literal format.
package store

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var dataBucket = []byte("data")

// KV is a single-bucket bbolt-backed key/value store. Values are opaque
// byte slices; callers JSON-encode/decode them.
type KV struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bbolt database at path with a single
// bucket, mirroring newPersistent/connect in the teacher's cache backend.
func Open(path string) (*KV, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open store %q", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "init store %q", path)
	}
	return &KV{db: db}, nil
}

// Close closes the underlying database.
func (kv *KV) Close() error {
	return kv.db.Close()
}

// Put writes value under key.
func (kv *KV) Put(key string, value []byte) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dataBucket).Put([]byte(key), value)
	})
}

// Get returns the value stored under key, or found=false if absent.
func (kv *KV) Get(key string) (value []byte, found bool, err error) {
	err = kv.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(dataBucket).Get([]byte(key))
		if v != nil {
			found = true
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, found, err
}

// Delete removes key, if present.
func (kv *KV) Delete(key string) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dataBucket).Delete([]byte(key))
	})
}

// ForEach calls fn for every key/value pair currently stored.
func (kv *KV) ForEach(fn func(key string, value []byte) error) error {
	return kv.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(dataBucket).ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}
