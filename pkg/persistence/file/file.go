// Package file provides a file-system implementation of the record store,
// used for local development and tests.
package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/guestflow/guestflow/pkg/persistence"
)

// Store implements persistence.Store on top of a directory tree. Each key
// segment becomes a path segment, so "campaign:proj:id" is stored at
// <root>/campaign/proj/id.json.
type Store struct {
	root string
	mu   sync.RWMutex
}

// NewStore creates a file store rooted at the given directory. A "file://"
// scheme prefix is accepted and stripped.
func NewStore(root string) *Store {
	return &Store{
		root: strings.Replace(root, "file://", "", 1),
	}
}

func (s *Store) path(key string) string {
	parts := strings.Split(key, ":")

	return filepath.Join(append([]string{s.root}, parts...)...) + ".json"
}

func (s *Store) key(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return ""
	}

	rel = strings.TrimSuffix(rel, ".json")

	return strings.Join(strings.Split(rel, string(filepath.Separator)), ":")
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("Get", key, persistence.ErrKeyNotFound)
		}

		return nil, persistence.NewStoreError("Get", key, err)
	}

	return body, nil
}

// Set stores the record under key, creating parent directories as needed.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return persistence.NewStoreError("Set", key, err)
	}

	if err := os.WriteFile(path, value, 0o644); err != nil {
		return persistence.NewStoreError("Set", key, err)
	}

	return nil
}

// Delete removes the record under key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return persistence.NewStoreError("Delete", key, err)
	}

	return nil
}

// ScanByPrefix walks the tree and returns every record whose key starts
// with prefix.
func (s *Store) ScanByPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make(map[string][]byte)

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}

			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		key := s.key(path)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		records[key] = body

		return nil
	})
	if err != nil {
		return nil, persistence.NewStoreError("ScanByPrefix", prefix, err)
	}

	return records, nil
}

// HealthCheck verifies the root directory is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.root); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// Close is a no-op for the file store.
func (s *Store) Close(ctx context.Context) error {
	return nil
}
