// Package postgresql provides a PostgreSQL implementation of the record
// store, backed by a single key/value table.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/guestflow/guestflow/pkg/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS guestflow_records (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS guestflow_records_prefix_idx
	ON guestflow_records (key text_pattern_ops);
`

// Store implements persistence.Store on top of PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects to the database described by url and bootstraps the
// records table.
func NewStore(ctx context.Context, logger *slog.Logger, url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to bootstrap records table: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM guestflow_records WHERE key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("Get", key, persistence.ErrKeyNotFound)
		}

		return nil, persistence.NewStoreError("Get", key, err)
	}

	return value, nil
}

// Set upserts the record under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guestflow_records (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return persistence.NewStoreError("Set", key, err)
	}

	return nil
}

// Delete removes the record under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM guestflow_records WHERE key = $1`, key,
	)
	if err != nil {
		return persistence.NewStoreError("Delete", key, err)
	}

	return nil
}

// ScanByPrefix returns every record whose key starts with prefix.
func (s *Store) ScanByPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM guestflow_records WHERE key LIKE $1 || '%' ORDER BY key`,
		prefix,
	)
	if err != nil {
		return nil, persistence.NewStoreError("ScanByPrefix", prefix, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("Failed to close rows", "error", err)
		}
	}()

	records := make(map[string][]byte)

	for rows.Next() {
		var (
			key   string
			value []byte
		)

		if err := rows.Scan(&key, &value); err != nil {
			return nil, persistence.NewStoreError("ScanByPrefix", prefix, err)
		}

		records[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ScanByPrefix", prefix, err)
	}

	return records, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
