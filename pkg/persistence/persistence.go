// Package persistence provides the key-addressed storage abstraction that
// every component rehydrates from between calls.
package persistence

import "context"

// Store is a key-addressed record store. Keys are namespaced strings
// combining entity kind, project id and a unique suffix (see Key); values
// are opaque JSON-encoded records.
type Store interface {
	// Get returns the record stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the record under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the record under key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// ScanByPrefix returns every record whose key starts with prefix.
	ScanByPrefix(ctx context.Context, prefix string) (map[string][]byte, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
