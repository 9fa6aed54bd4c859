package blobstore

import "errors"

// Sentinel kinds for blob store errors.
var (
	ErrNotFound     = errors.New("blob not found")
	ErrExists       = errors.New("blob already exists")
	ErrInvalidKey   = errors.New("invalid blob key")
	ErrInvalidLimit = errors.New("invalid list limit")
	ErrBackend      = errors.New("blob store backend failure")
)
