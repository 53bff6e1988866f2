// Package store persists bot settings in a bbolt database.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var configBucket = []byte("config")

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(configBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create config bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadList returns the list stored under key, or nil when there is none.
func (s *Store) LoadList(_ context.Context, key string) ([]string, error) {
	var links []string
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(configBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &links)
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return links, nil
}

func (s *Store) SaveList(_ context.Context, key string, links []string) error {
	if links == nil {
		links = []string{}
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(configBucket).Put([]byte(key), raw)
	})
}
