package poller

import (
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithInterval sets the period between cycles.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPrefix sets the key prefix recordings are listed under.
func WithPrefix(prefix string) Option {
	return func(p *Poller) {
		p.prefix = prefix
	}
}

// WithPageSize sets how many keys one List call asks for.
func WithPageSize(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithLogger sets the poller logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}
