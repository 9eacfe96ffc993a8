// Package redis provides a Redis implementation of the record store.
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/guestflow/guestflow/pkg/persistence"
)

// Store implements persistence.Store on top of a Redis database.
type Store struct {
	client *redis.Client
}

// NewStore connects to the Redis database described by url
// (e.g. "redis://localhost:6379/0").
func NewStore(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, persistence.NewStoreError("Connect", "", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, persistence.NewStoreError("Connect", "", err)
	}

	return &Store{client: client}, nil
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewStoreError("Get", key, persistence.ErrKeyNotFound)
		}

		return nil, persistence.NewStoreError("Get", key, err)
	}

	return body, nil
}

// Set stores the record under key. Records do not expire; session expiry is
// an application-level concern checked at read time.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return persistence.NewStoreError("Set", key, err)
	}

	return nil
}

// Delete removes the record under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return persistence.NewStoreError("Delete", key, err)
	}

	return nil
}

// ScanByPrefix iterates the keyspace with SCAN MATCH and returns every
// matching record.
func (s *Store) ScanByPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	records := make(map[string][]byte)

	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		body, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Deleted between SCAN and GET.
				continue
			}

			return nil, persistence.NewStoreError("ScanByPrefix", key, err)
		}

		records[key] = body
	}

	if err := iter.Err(); err != nil {
		return nil, persistence.NewStoreError("ScanByPrefix", prefix, err)
	}

	return records, nil
}

// HealthCheck pings the Redis server.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}
