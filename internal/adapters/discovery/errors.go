package discovery

import "errors"

// ErrDiscovery wraps every failure talking to the source host. Callers log
// it and retry on the next tick.
var ErrDiscovery = errors.New("discovery failed")

// errNotFound marks a 404 from the source host; absence is not a failure
// for manifests and sources.
var errNotFound = errors.New("not found")
