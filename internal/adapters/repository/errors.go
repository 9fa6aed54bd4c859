package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotFound   = errors.New("battle not found")
	ErrInvalidKey = errors.New("invalid battle key")
)
