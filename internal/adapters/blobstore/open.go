package blobstore

import (
	"context"
	"fmt"
)

// Config selects and locates a backend.
type Config struct {
	Backend     string // memory, sqlite or postgres
	SQLitePath  string
	PostgresDSN string
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case BackendPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrBackend, cfg.Backend)
	}
}
