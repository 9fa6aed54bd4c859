// Package poller folds recordings from the result store into the battle
// history. It runs on its own ticker and shares nothing with the battle
// loop except the store and the history.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/blobstore"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/repository"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

// MetaTimestamp is the metadata key holding a recording's ISO-8601 time.
const MetaTimestamp = "timestamp"

const (
	defaultInterval = time.Minute
	defaultPrefix   = "runs/"
	defaultPageSize = 1000
)

// Item dispositions, used as metric labels.
const (
	itemNew    = "new"
	itemEmpty  = "empty"
	itemKnown  = "known"
	itemFailed = "failed"
)

// Replayer reproduces a battle's results from its recording.
type Replayer interface {
	Replay(ctx context.Context, recording []byte) ([]model.RankedResult, error)
}

// CycleStats summarises one pass over the store.
type CycleStats struct {
	Listed  int
	Added   int
	Skipped int
	Failed  int
}

// Poller lists the result store and replays recordings it has not seen.
type Poller struct {
	store    blobstore.Store
	replayer Replayer
	history  repository.Store

	interval time.Duration
	prefix   string
	pageSize int
	log      logger.Logger
}

// New creates a Poller.
func New(store blobstore.Store, replayer Replayer, history repository.Store, opts ...Option) *Poller {
	p := &Poller{
		store:    store,
		replayer: replayer,
		history:  history,
		interval: defaultInterval,
		prefix:   defaultPrefix,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("poller")
	}
	return p
}

// Start runs a cycle immediately and then on every tick until ctx ends.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Cycle(ctx); err != nil && ctx.Err() == nil {
			p.log.Error(ctx, "poll cycle aborted", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cycle lists every key under the prefix and folds new recordings into the
// history. Item failures are logged and counted; a listing failure ends the
// cycle and is returned along with the stats gathered so far.
func (p *Poller) Cycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		page, err := p.store.List(ctx, p.prefix, token, p.pageSize)
		if err != nil {
			metrics.RecordPollCycle("list_error")
			return stats, fmt.Errorf("list %q after %q: %w", p.prefix, token, err)
		}

		for _, info := range page.Objects {
			stats.Listed++
			switch p.consider(ctx, info) {
			case itemNew:
				stats.Added++
			case itemFailed:
				stats.Failed++
			default:
				stats.Skipped++
			}
		}

		if !page.Truncated {
			break
		}
		token = page.NextToken
	}

	metrics.RecordPollCycle("ok")
	metrics.UpdateHistorySize(p.history.Count(ctx))
	if stats.Added > 0 || stats.Failed > 0 {
		p.log.Info(ctx, "poll cycle finished",
			logger.Int("listed", stats.Listed),
			logger.Int("added", stats.Added),
			logger.Int("failed", stats.Failed))
	}
	return stats, nil
}

func (p *Poller) consider(ctx context.Context, info blobstore.ObjectInfo) string {
	disposition := itemNew
	switch {
	case info.Size == 0:
		disposition = itemEmpty
	case p.history.Has(ctx, info.Key):
		disposition = itemKnown
	default:
		if err := p.fold(ctx, info.Key); err != nil {
			p.log.Error(ctx, "recording not folded",
				logger.String("key", info.Key), logger.Error(err))
			metrics.RecordErrorByComponent("poller", "item")
			disposition = itemFailed
		}
	}
	metrics.RecordPollItem(disposition)
	return disposition
}

func (p *Poller) fold(ctx context.Context, key string) error {
	obj, err := p.store.Get(ctx, key)
	if err != nil {
		return err
	}

	ts, err := ParseTimestamp(obj.Metadata)
	if err != nil {
		return err
	}

	results, err := p.replayer.Replay(ctx, obj.Body)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	added, err := p.history.Add(ctx, model.BattleStatistics{Key: key, Timestamp: ts, Results: results})
	if err != nil {
		return err
	}
	if added {
		p.log.Info(ctx, "recording folded into history",
			logger.String("key", key), logger.Int("results", len(results)))
	}
	return nil
}

// ParseTimestamp reads the ISO-8601 timestamp from recording metadata.
func ParseTimestamp(metadata map[string]string) (time.Time, error) {
	raw, ok := metadata[MetaTimestamp]
	if !ok || raw == "" {
		return time.Time{}, ErrMissingTimestamp
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrBadTimestamp, raw, err)
	}
	return ts.UTC(), nil
}

// FormatTimestamp renders t the way ParseTimestamp reads it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
