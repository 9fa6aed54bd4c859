package tournament

import (
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

// BattleOption configures a BattleRunner.
type BattleOption func(*BattleRunner)

// WithKeyPrefix sets the blob key namespace recordings are written under.
func WithKeyPrefix(prefix string) BattleOption {
	return func(b *BattleRunner) {
		b.prefix = prefix
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) BattleOption {
	return func(b *BattleRunner) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBattleLogger sets the battle runner logger.
func WithBattleLogger(l logger.Logger) BattleOption {
	return func(b *BattleRunner) {
		if l != nil {
			b.log = l
		}
	}
}

// DiscoveryOption configures a Discoverer.
type DiscoveryOption func(*Discoverer)

// WithInterval sets the period between discovery cycles.
func WithInterval(d time.Duration) DiscoveryOption {
	return func(d2 *Discoverer) {
		if d > 0 {
			d2.interval = d
		}
	}
}

// WithCooldown sets how long a repository without a robot is left alone.
func WithCooldown(d time.Duration) DiscoveryOption {
	return func(d2 *Discoverer) {
		if d >= 0 {
			d2.cooldown = d
		}
	}
}

// WithDiscoveryClock replaces time.Now, mainly for tests.
func WithDiscoveryClock(now func() time.Time) DiscoveryOption {
	return func(d *Discoverer) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDiscoveryLogger sets the discoverer logger.
func WithDiscoveryLogger(l logger.Logger) DiscoveryOption {
	return func(d *Discoverer) {
		if l != nil {
			d.log = l
		}
	}
}
