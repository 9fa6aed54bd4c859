package compiler

import (
	"errors"
	"fmt"
)

// Sentinel kinds for compilation errors.
var (
	// ErrConfiguration means the pipeline itself is unusable: the root cannot
	// be written, the language is unknown, or a toolchain will not start.
	ErrConfiguration = errors.New("compiler configuration error")
	// ErrCompileFailed means one competitor's source did not compile.
	ErrCompileFailed = errors.New("compile failed")
)

// CompileError describes one failed compilation.
type CompileError struct {
	Key      string
	Language string
	ExitCode int
	Output   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s (%s) exited with code %d", ErrCompileFailed, e.Key, e.Language, e.ExitCode)
}

// Unwrap lets errors.Is match ErrCompileFailed.
func (e *CompileError) Unwrap() error { return ErrCompileFailed }
