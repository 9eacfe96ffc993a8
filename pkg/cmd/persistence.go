package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guestflow/guestflow/pkg/persistence"
	"github.com/guestflow/guestflow/pkg/persistence/file"
	"github.com/guestflow/guestflow/pkg/persistence/postgresql"
	"github.com/guestflow/guestflow/pkg/persistence/redis"
)

// NewStore creates a store from a database URL. The scheme selects the
// backend; anything without a known scheme is treated as a file path.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewStore(ctx, logger, databaseURL)
	case strings.HasPrefix(databaseURL, "redis://"), strings.HasPrefix(databaseURL, "rediss://"):
		return redis.NewStore(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "file://"):
		return file.NewStore(strings.TrimPrefix(databaseURL, "file://")), nil
	case strings.Contains(databaseURL, "://"):
		return nil, fmt.Errorf("unsupported database url: %s", databaseURL)
	default:
		return file.NewStore(databaseURL), nil
	}
}
