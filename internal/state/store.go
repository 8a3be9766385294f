// Package state keeps an operator-facing ledger of the last run per provider.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Adda-Baaj/pressfeed/internal/domain"
)

var runsBucket = []byte("runs")

// ErrNotFound is returned when no run has been recorded for a provider.
var ErrNotFound = errors.New("run not found")

// Store persists RunResults in a bbolt file keyed by provider id.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("state path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init state db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores res as the latest run for its provider.
func (s *Store) RecordRun(res domain.RunResult) error {
	if res.ProviderID == "" {
		return errors.New("run result has no provider id")
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(res.ProviderID), payload)
	})
}

// LastRun returns the latest recorded run for providerID.
func (s *Store) LastRun(providerID string) (domain.RunResult, error) {
	var res domain.RunResult
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(runsBucket).Get([]byte(providerID))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &res)
	})
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("last run %q: %w", providerID, err)
	}
	return res, nil
}

// Runs returns every recorded run ordered by provider id.
func (s *Store) Runs() ([]domain.RunResult, error) {
	var out []domain.RunResult
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, v []byte) error {
			var res domain.RunResult
			if err := json.Unmarshal(v, &res); err != nil {
				return fmt.Errorf("decode run %q: %w", k, err)
			}
			out = append(out, res)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
