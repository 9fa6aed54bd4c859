// Package blobstore is the remote result store: immutable keyed blobs with
// string metadata, listable by prefix in key order.
package blobstore

import (
	"context"
	"strings"
)

// Backend names, used as metric labels.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Object is a stored blob with its metadata.
type Object struct {
	Key      string
	Size     int64
	Metadata map[string]string
	Body     []byte
}

// ObjectInfo is one row of a listing.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Page is one page of a listing. When Truncated is set, pass NextToken to
// List to continue after the last returned key.
type Page struct {
	Objects   []ObjectInfo
	NextToken string
	Truncated bool
}

// Store is the blob store contract.
type Store interface {
	// Exists reports whether key holds a blob.
	Exists(ctx context.Context, key string) (bool, error)
	// Put writes a new blob. Blobs are immutable: an existing key yields ErrExists.
	Put(ctx context.Context, key string, body []byte, metadata map[string]string) error
	// Get reads a blob or returns ErrNotFound.
	Get(ctx context.Context, key string) (Object, error)
	// List returns up to limit keys with the given prefix, in ascending key
	// order, strictly after token.
	List(ctx context.Context, prefix, token string, limit int) (Page, error)
	// Close releases backend resources.
	Close() error
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

func copyMetadata(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

// page trims rows fetched with limit+1 into a Page.
func page(rows []ObjectInfo, limit int) Page {
	if len(rows) <= limit {
		return Page{Objects: rows}
	}
	rows = rows[:limit]
	return Page{Objects: rows, NextToken: rows[len(rows)-1].Key, Truncated: true}
}
