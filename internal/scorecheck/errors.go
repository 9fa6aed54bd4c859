package scorecheck

import "errors"

var (
	// ErrFetch reports that the scoreboard could not be retrieved.
	ErrFetch = errors.New("scoreboard fetch failed")
	// ErrInconsistent reports a scoreboard that fails verification.
	ErrInconsistent = errors.New("scoreboard inconsistent")
)
