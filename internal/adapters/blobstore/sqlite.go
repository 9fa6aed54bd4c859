package blobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore keeps blobs in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrBackend, err)
	}
	// One writer keeps "database is locked" out of the picture.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS blobs (
			key        TEXT PRIMARY KEY,
			body       BLOB NOT NULL,
			size       INTEGER NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: sqlite %q: %w", ErrBackend, firstLine(stmt), err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %w", ErrBackend, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Exists implements Store.
func (s *SQLiteStore) Exists(ctx context.Context, key string) (ok bool, err error) {
	defer func() { metrics.RecordBlobOperation(BackendSQLite, "exists", err) }()
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM blobs WHERE key = ?`, key).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: exists %s: %w", ErrBackend, key, err)
	}
	return true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key string, body []byte, metadata map[string]string) (err error) {
	defer func() { metrics.RecordBlobOperation(BackendSQLite, "put", err) }()
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

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, body, size, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, body, len(body), string(md), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrBackend, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrBackend, key, err)
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (obj Object, err error) {
	defer func() { metrics.RecordBlobOperation(BackendSQLite, "get", err) }()
	var (
		body []byte
		size int64
		md   string
	)
	err = s.db.QueryRowContext(ctx, `SELECT body, size, metadata FROM blobs WHERE key = ?`, key).Scan(&body, &size, &md)
	switch {
	case errors.Is(err, sql.ErrNoRows):
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
func (s *SQLiteStore) List(ctx context.Context, prefix, token string, limit int) (p Page, err error) {
	defer func() { metrics.RecordBlobOperation(BackendSQLite, "list", err) }()
	if limit <= 0 {
		return Page{}, ErrInvalidLimit
	}

	// substr keeps the prefix literal; LIKE would treat % and _ as wildcards.
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, size FROM blobs
		 WHERE substr(key, 1, ?) = ? AND key > ?
		 ORDER BY key
		 LIMIT ?`,
		len([]rune(prefix)), prefix, token, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("%w: list %s: %w", ErrBackend, prefix, err)
	}
	defer func() { _ = rows.Close() }()

	infos := make([]ObjectInfo, 0, limit+1)
	for rows.Next() {
		var oi ObjectInfo
		if err := rows.Scan(&oi.Key, &oi.Size); err != nil {
			return Page{}, fmt.Errorf("%w: list %s: %w", ErrBackend, prefix, err)
		}
		infos = append(infos, oi)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("%w: list %s: %w", ErrBackend, prefix, err)
	}
	return page(infos, limit), nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
