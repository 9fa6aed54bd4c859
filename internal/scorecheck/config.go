// Package scorecheck fetches a live scoreboard and verifies that it is
// consistent with the battle history served alongside it.
package scorecheck

import "time"

// Config holds configuration for a check run.
type Config struct {
	BaseURL string        // Base URL of the service
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every ranked entry
}

// Report summarises a verified scoreboard.
type Report struct {
	Competitors int
	Battles     int
	Leader      string
	LeaderScore int
	Duration    time.Duration
}
