package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS tournament_blobs (
	key        TEXT PRIMARY KEY,
	body       BYTEA NOT NULL,
	size       BIGINT NOT NULL,
	metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps blobs in a shared PostgreSQL table so several
// tournament processes can archive and replay each other's battles.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", ErrBackend, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", ErrBackend, err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: create schema: %w", ErrBackend, err)
	}
	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool. The schema must already exist.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Exists implements Store.
func (s *PostgresStore) Exists(ctx context.Context, key string) (ok bool, err error) {
	defer func() { metrics.RecordBlobOperation(BackendPostgres, "exists", err) }()
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tournament_blobs WHERE key = $1)`, key).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %w", ErrBackend, key, err)
	}
	return ok, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, key string, body []byte, metadata map[string]string) (err error) {
	defer func() { metrics.RecordBlobOperation(BackendPostgres, "put", err) }()
	if err := validKey(key); err != nil {
		return err
	}
	md, err := json.Marshal(copyMetadata(metadata))
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %w", ErrBackend, err)
	}
	if body == nil {
		body = []byte{}
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO tournament_blobs (key, body, size, metadata)
		 VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (key) DO NOTHING`,
		key, body, int64(len(body)), string(md))
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrBackend, key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (obj Object, err error) {
	defer func() { metrics.RecordBlobOperation(BackendPostgres, "get", err) }()
	var (
		body []byte
		size int64
		md   string
	)
	err = s.pool.QueryRow(ctx,
		`SELECT body, size, metadata::text FROM tournament_blobs WHERE key = $1`, key).Scan(&body, &size, &md)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Object{}, ErrNotFound
	case err != nil:
		return Object{}, fmt.Errorf("%w: get %s: %w", ErrBackend, key, err)
	}

	meta := map[string]string{}
	if err := json.Unmarshal([]byte(md), &meta); err != nil {
		return Object{}, fmt.Errorf("%w: decode metadata of %s: %w", ErrBackend, key, err)
	}
	return Object{Key: key, Size: size, Metadata: meta, Body: body}, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, prefix, token string, limit int) (p Page, err error) {
	defer func() { metrics.RecordBlobOperation(BackendPostgres, "list", err) }()
	if limit <= 0 {
		return Page{}, ErrInvalidLimit
	}

	// COLLATE "C" gives byte order, matching the other backends.
	rows, err := s.pool.Query(ctx,
		`SELECT key, size FROM tournament_blobs
		 WHERE left(key, char_length($1)) = $1 AND key COLLATE "C" > $2
		 ORDER BY key COLLATE "C"
		 LIMIT $3`,
		prefix, token, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("%w: list %s: %w", ErrBackend, prefix, err)
	}
	infos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ObjectInfo, error) {
		var oi ObjectInfo
		err := row.Scan(&oi.Key, &oi.Size)
		return oi, err
	})
	if err != nil {
		return Page{}, fmt.Errorf("%w: list %s: %w", ErrBackend, prefix, err)
	}
	return page(infos, limit), nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
