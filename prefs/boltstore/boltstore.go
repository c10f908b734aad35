// Package boltstore is a prefs.Store backed by a single bbolt bucket.
package boltstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/IvanBrykalov/prefcache/prefs"
)

// Store keeps raw preference values in one bucket of a bbolt file.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open opens (creating if needed) the database at path and ensures bucket
// exists. Open fails after one second if another process holds the file.
func Open(path, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("boltstore: empty bucket name")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	s := &Store{db: db, bucket: []byte(bucket)}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("boltstore: create bucket %q: %w", bucket, err)
	}
	return s, nil
}

// Close releases the database file.
func (s *Store) Close() error { return s.db.Close() }

// Read returns a copy of the value for key, or prefs.ErrNotFound.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return prefs.ErrNotFound
		}
		// v is only valid for the life of the transaction.
		out = bytes.Clone(v)
		return nil
	})
	return out, err
}

// Write stores v under key.
func (s *Store) Write(ctx context.Context, key string, v []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), v)
	})
}

// WriteBatch stores every pair of kv in a single transaction.
func (s *Store) WriteBatch(ctx context.Context, kv map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for k, v := range kv {
			if err := b.Put([]byte(k), v); err != nil {
				return fmt.Errorf("put %q: %w", k, err)
			}
		}
		return nil
	})
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

var _ prefs.Store[[]byte] = (*Store)(nil)
