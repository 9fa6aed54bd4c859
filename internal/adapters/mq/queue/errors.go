package queue

import "errors"

// ErrClosed is reported when enqueuing on a closed queue.
var ErrClosed = errors.New("queue closed")
