package service

import (
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/blobstore"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/discovery"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/repository"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBlobStore sets the result store. Defaults to an in-memory store.
func WithBlobStore(store blobstore.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithHistory sets the battle history store.
func WithHistory(h repository.Store) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithDriver sets the battle driver. Defaults to the simulator.
func WithDriver(d Driver) Option {
	return func(s *Service) {
		if d != nil {
			s.driver = d
		}
	}
}

// WithCompiler sets the compilation pipeline. Without one every registered
// competitor is treated as ready to fight.
func WithCompiler(c Compiler) Option {
	return func(s *Service) {
		if c != nil {
			s.compiler = c
		}
	}
}

// WithSource enables discovery from src.
func WithSource(src discovery.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithKeyPrefix sets the blob key namespace for recordings.
func WithKeyPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithListPageSize sets the poller's page size.
func WithListPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithPollInterval sets the result store poll period.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithDiscoveryInterval sets the discovery period.
func WithDiscoveryInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.discoveryInterval = d
		}
	}
}

// WithDiscoveryCooldown sets how long a robot-less repository is skipped.
func WithDiscoveryCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cooldown = d
		}
	}
}

// WithQueueSize sets the battle request queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of battle workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
