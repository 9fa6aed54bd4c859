// Package service wires the tournament together and answers the queries
// the HTTP API serves.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/blobstore"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/compiler"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/discovery"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/engine"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/mq/queue"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/mq/worker"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/repository"
	"github.com/MiradoConsulting/RobocodeEngine/internal/app/poller"
	"github.com/MiradoConsulting/RobocodeEngine/internal/app/tournament"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/registry"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/scoreboard"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/types"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

const (
	defaultKeyPrefix         = "runs/"
	defaultPageSize          = 1000
	defaultPollInterval      = time.Minute
	defaultDiscoveryInterval = time.Minute
	defaultCooldown          = 15 * time.Minute
	defaultQueueSize         = 16
	defaultWorkerCount       = 1
)

// Driver runs and replays battles.
type Driver interface {
	tournament.BattleDriver
	poller.Replayer
	EngineName() string
	LastState() engine.State
}

// Compiler compiles competitors as the registry accepts them.
type Compiler interface {
	OnPut(ctx context.Context, spec model.CompetitorSpec)
	Compiled(key string) bool
	Statuses() []compiler.Status
}

// Service implements the API dependencies for the tournament.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	store    blobstore.Store
	history  repository.Store
	driver   Driver
	compiler Compiler
	source   discovery.Source

	// Built in New
	registry   *registry.Registry
	aggregator *scoreboard.Aggregator

	// Built in Start
	queue      *queue.InMemoryQueue
	pool       *worker.Pool
	battles    *tournament.BattleRunner
	poller     *poller.Poller
	discoverer *tournament.Discoverer

	// Configuration
	keyPrefix         string
	pageSize          int
	pollInterval      time.Duration
	discoveryInterval time.Duration
	cooldown          time.Duration
	queueSize         int
	workerCount       int

	// State
	started bool
	cancel  context.CancelFunc
	loops   sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Collaborators not supplied through options get
// in-process defaults.
func New(opts ...Option) *Service {
	s := &Service{
		keyPrefix:         defaultKeyPrefix,
		pageSize:          defaultPageSize,
		pollInterval:      defaultPollInterval,
		discoveryInterval: defaultDiscoveryInterval,
		cooldown:          defaultCooldown,
		queueSize:         defaultQueueSize,
		workerCount:       defaultWorkerCount,
		aggregator:        scoreboard.NewAggregator(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = blobstore.NewMemoryStore()
	}
	if s.history == nil {
		s.history = repository.NewMemoryStore()
	}
	if s.driver == nil {
		s.driver = engine.NewDriver(engine.NewSimulator(0))
	}
	s.registry = registry.New(registry.WithOnPut(s.onPut))
	return s
}

func (s *Service) onPut(ctx context.Context, spec model.CompetitorSpec) {
	if s.compiler != nil {
		s.compiler.OnPut(ctx, spec)
	}
}

// Compiled reports whether key is ready to fight.
func (s *Service) Compiled(key string) bool {
	if s.compiler == nil {
		_, ok := s.registry.Get(key)
		return ok
	}
	return s.compiler.Compiled(key)
}

// Start builds the queue, workers and loops and runs them until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting tournament service...")

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.battles = tournament.NewBattleRunner(s.registry, s, s.driver, s.store, s.history,
		tournament.WithKeyPrefix(s.keyPrefix))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.battles)
	s.pool.Start(runCtx)

	s.poller = poller.New(s.store, s.driver, s.history,
		poller.WithInterval(s.pollInterval),
		poller.WithPrefix(s.keyPrefix),
		poller.WithPageSize(s.pageSize))
	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		s.poller.Start(runCtx)
	}()

	if s.source != nil {
		s.discoverer = tournament.NewDiscoverer(s.source, s.registry, s.queue,
			tournament.WithInterval(s.discoveryInterval),
			tournament.WithCooldown(s.cooldown))
		s.loops.Add(1)
		go func() {
			defer s.loops.Done()
			s.discoverer.Start(runCtx)
		}()
	}

	s.started = true
	s.logger.Info(ctx, "tournament service started",
		logger.String("engine", s.driver.EngineName()),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("discovery", s.source != nil))
	return nil
}

// Stop cancels the loops and waits for the workers. The blob store stays
// open; its owner closes it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping tournament service...")

	s.cancel()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.loops.Wait()

	s.started = false
	s.logger.Info(ctx, "tournament service stopped")
}

// Register adds or replaces a competitor as discovery would and requests a
// battle for the new roster.
func (s *Service) Register(ctx context.Context, key string, spec model.CompetitorSpec) bool {
	s.registry.Put(ctx, key, spec)
	return s.RequestBattle(ctx, "registered "+key)
}

// RequestBattle queues a battle request. It returns false when the service
// is not running or a request is already pending.
func (s *Service) RequestBattle(ctx context.Context, reason string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false
	}
	return s.queue.Enqueue(ctx, model.BattleRequest{
		ID:          uuid.NewString(),
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	})
}

// Poll runs one poller cycle now.
func (s *Service) Poll(ctx context.Context) (poller.CycleStats, error) {
	s.mu.RLock()
	p := s.poller
	s.mu.RUnlock()
	if p == nil {
		p = poller.New(s.store, s.driver, s.history,
			poller.WithPrefix(s.keyPrefix), poller.WithPageSize(s.pageSize))
	}
	return p.Cycle(ctx)
}

// Scoreboard aggregates the current history.
func (s *Service) Scoreboard(ctx context.Context) (types.Scoreboard, error) {
	sb := s.aggregator.Compute(ctx, s.history.Snapshot(ctx))
	return types.FromScoreboard(sb), nil
}

// Battles returns the raw history keyed by recording key.
func (s *Service) Battles(ctx context.Context) (map[string]types.BattleStatistics, error) {
	snapshot := s.history.Snapshot(ctx)
	out := make(map[string]types.BattleStatistics, len(snapshot))
	for _, b := range snapshot {
		out[b.Key] = types.FromBattle(b)
	}
	return out, nil
}

// Competitors returns the registry with compile outcomes, ordered by key.
func (s *Service) Competitors(_ context.Context) ([]types.Competitor, error) {
	statuses := map[string]compiler.Status{}
	if s.compiler != nil {
		for _, st := range s.compiler.Statuses() {
			statuses[st.Key] = st
		}
	}

	specs := s.registry.Snapshot()
	out := make([]types.Competitor, 0, len(specs))
	for _, spec := range specs {
		c := types.Competitor{
			Key:          spec.RepositoryKey,
			Name:         spec.Name,
			Owner:        spec.Owner,
			URL:          spec.URL,
			ClassName:    spec.QualifiedClassName(),
			Language:     string(spec.Language),
			Version:      spec.Version,
			LastModified: spec.LastModified.UTC(),
			Compiled:     s.Compiled(spec.RepositoryKey),
		}
		if st, ok := statuses[spec.RepositoryKey]; ok {
			c.CompileError = st.Error
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"engine":      s.driver.EngineName(),
		"engineState": s.driver.LastState().String(),
		"discovery":   s.source != nil,
		"competitors": s.registry.Len(),
		"fingerprint": s.registry.Fingerprint(),
		"battles":     s.history.Count(ctx),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["activeWorkers"] = s.pool.Active()
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
