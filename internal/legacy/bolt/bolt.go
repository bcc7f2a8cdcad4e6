package bolt

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// DefaultBucket holds every legacy store, one key per store id.
const DefaultBucket = "mmkv"

// Store implements legacy.Store on a single bbolt bucket.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open creates or opens a bbolt database at the given path. An empty
// bucket name selects DefaultBucket.
func Open(path, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening legacy db: %w", err)
	}
	return &Store{db: db, bucket: []byte(bucket)}, nil
}

func (s *Store) Get(key string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// string() copies; v is only valid inside the transaction.
			val, ok = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("reading legacy key %q: %w", key, err)
	}
	return val, ok, nil
}

// Put stores value under key. The storage core never writes to the legacy
// engine; Put exists for tooling and tests that seed it.
func (s *Store) Put(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (s *Store) Remove(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Keys lists every key still held by the engine, in byte order.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
