package poller

import "errors"

// Per-item failures. They are logged and the cycle continues.
var (
	ErrMissingTimestamp = errors.New("recording has no timestamp metadata")
	ErrBadTimestamp     = errors.New("recording timestamp is not ISO-8601")
)
