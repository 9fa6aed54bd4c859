package tournament

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/discovery"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

const (
	defaultDiscoveryInterval = time.Minute
	defaultCooldown          = 15 * time.Minute
)

// cooldownEntry remembers a repository whose tree held no robot.
type cooldownEntry struct {
	checkedAt time.Time
	pushedAt  time.Time
}

// Discoverer polls the source host and registers changed competitors.
type Discoverer struct {
	source discovery.Source
	roster Roster
	queue  Enqueuer

	interval time.Duration
	cooldown time.Duration
	now      func() time.Time
	log      logger.Logger

	mu      sync.Mutex
	checked map[string]cooldownEntry
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(source discovery.Source, roster Roster, queue Enqueuer, opts ...DiscoveryOption) *Discoverer {
	d := &Discoverer{
		source:   source,
		roster:   roster,
		queue:    queue,
		interval: defaultDiscoveryInterval,
		cooldown: defaultCooldown,
		now:      time.Now,
		checked:  make(map[string]cooldownEntry),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get().Named("discovery")
	}
	return d
}

// Start runs a cycle immediately and then on every tick until ctx ends.
func (d *Discoverer) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.Cycle(ctx); err != nil && ctx.Err() == nil {
			d.log.Error(ctx, "discovery cycle failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cycle checks every repository once and returns how many competitors
// changed. Failures on one repository are logged and retried next cycle;
// only a failed repository listing is returned.
func (d *Discoverer) Cycle(ctx context.Context) (int, error) {
	repos, err := d.source.ListRepositories(ctx)
	if err != nil {
		metrics.RecordDiscoveryError()
		metrics.RecordErrorByComponent("discovery", "list")
		return 0, err
	}

	changed := 0
	for _, repo := range repos {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		metrics.RecordDiscoveryRepository()
		ok, err := d.consider(ctx, repo)
		if err != nil {
			metrics.RecordDiscoveryError()
			metrics.RecordErrorByComponent("discovery", "repository")
			d.log.Warn(ctx, "repository skipped",
				logger.String("repository", repo.Name), logger.Error(err))
			continue
		}
		if ok {
			changed++
			metrics.RecordDiscoveryChanged()
		}
	}

	if changed > 0 {
		req := model.BattleRequest{
			ID:          uuid.NewString(),
			Reason:      fmt.Sprintf("discovery: %d competitor(s) changed", changed),
			RequestedAt: d.now().UTC(),
		}
		if !d.queue.Enqueue(ctx, req) {
			d.log.Info(ctx, "battle request not queued, one is already pending")
		}
	}
	return changed, nil
}

// consider reports whether repo produced a new or updated competitor.
func (d *Discoverer) consider(ctx context.Context, repo discovery.Repository) (bool, error) {
	if existing, ok := d.roster.Get(repo.Name); ok && existing.LastModified.Equal(repo.PushedAt) {
		return false, nil
	}
	if d.coolingDown(repo) {
		return false, nil
	}

	manifest, err := d.source.FetchManifest(ctx, repo)
	if err != nil || manifest == nil {
		return false, err
	}

	revision, err := d.source.LatestRevision(ctx, repo)
	if err != nil {
		return false, err
	}

	found, err := d.source.FindCompetitorSource(ctx, repo, revision)
	if err != nil {
		return false, err
	}
	if found == nil {
		d.mu.Lock()
		d.checked[repo.Name] = cooldownEntry{checkedAt: d.now(), pushedAt: repo.PushedAt}
		d.mu.Unlock()
		d.log.Debug(ctx, "no robot in repository", logger.String("repository", repo.Name))
		return false, nil
	}

	spec := *found
	spec.Name = manifest.Name
	if spec.Name == "" {
		spec.Name = spec.ClassName
	}
	spec.Owner = manifest.Owner
	spec.URL = repo.HTMLURL
	spec.LastModified = repo.PushedAt
	spec.Version = revision

	d.mu.Lock()
	delete(d.checked, repo.Name)
	d.mu.Unlock()

	d.log.Info(ctx, "competitor updated",
		logger.String("repository", repo.Name),
		logger.String("class", spec.QualifiedClassName()),
		logger.String("revision", revision))
	d.roster.Put(ctx, repo.Name, spec)
	return true, nil
}

// coolingDown reports whether repo recently held no robot and has not been
// pushed since.
func (d *Discoverer) coolingDown(repo discovery.Repository) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.checked[repo.Name]
	if !ok {
		return false
	}
	if !e.pushedAt.Equal(repo.PushedAt) || d.now().Sub(e.checkedAt) >= d.cooldown {
		delete(d.checked, repo.Name)
		return false
	}
	return true
}
