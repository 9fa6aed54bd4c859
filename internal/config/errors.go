package config

import "errors"

var (
	// ErrInvalidConfig marks a configuration that loaded but fails Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a source (dotenv, file or env) that could not be read.
	ErrLoadConfig = errors.New("load config failed")
)
