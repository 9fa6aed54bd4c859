package engine

import "github.com/MiradoConsulting/RobocodeEngine/pkg/logger"

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithRounds sets the number of rounds per battle.
func WithRounds(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.rounds = n
		}
	}
}

// WithBattlefield sets the arena size.
func WithBattlefield(width, height int) Option {
	return func(d *Driver) {
		if width > 0 && height > 0 {
			d.battlefield = Battlefield{Width: width, Height: height}
		}
	}
}

// WithLogger sets the driver logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}
