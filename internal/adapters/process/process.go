// Package process runs external programs (compilers, the battle engine)
// and reports their combined output and exit status.
package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrStart is returned when a program could not be started at all.
var ErrStart = errors.New("process could not be started")

// Result is the outcome of a finished program.
type Result struct {
	Output   []byte
	ExitCode int
	Duration time.Duration
}

// Runner runs name with args in dir. A non-zero exit is reported through
// Result.ExitCode, not as an error. The error is non-nil only when the
// program could not be started or ctx ended first.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner is the os/exec Runner.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	res := Result{Output: out, Duration: time.Since(start)}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("%w: %s: %w", ErrStart, name, err)
	}
}
