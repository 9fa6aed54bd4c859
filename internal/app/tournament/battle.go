package tournament

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/blobstore"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/repository"
	"github.com/MiradoConsulting/RobocodeEngine/internal/app/poller"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/registry"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

const defaultKeyPrefix = "runs/"

// BattleRunner handles battle requests for the current roster.
type BattleRunner struct {
	roster   Roster
	compiled CompileStatus
	driver   BattleDriver
	store    blobstore.Store
	history  repository.Store

	prefix string
	now    func() time.Time
	log    logger.Logger
}

// NewBattleRunner creates a BattleRunner.
func NewBattleRunner(roster Roster, compiled CompileStatus, driver BattleDriver,
	store blobstore.Store, history repository.Store, opts ...BattleOption,
) *BattleRunner {
	b := &BattleRunner{
		roster:   roster,
		compiled: compiled,
		driver:   driver,
		store:    store,
		history:  history,
		prefix:   defaultKeyPrefix,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get().Named("battle")
	}
	return b
}

// KeyFor returns the recording key for a fingerprint.
func (b *BattleRunner) KeyFor(fingerprint string) string {
	return b.prefix + fingerprint
}

// HandleBattleRequest runs a battle unless the current roster already has a
// recording. The recording is uploaded and its results folded into the
// history under the same key. Key and competitors come from one snapshot.
func (b *BattleRunner) HandleBattleRequest(ctx context.Context, r model.BattleRequest) error {
	roster := b.roster.Snapshot()
	key := b.KeyFor(registry.Fingerprint(roster))

	exists, err := b.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if exists {
		metrics.RecordBattle(metrics.OutcomeSkipped)
		b.log.Info(ctx, "battle already recorded",
			logger.String("key", key), logger.String("request_id", r.ID))
		return nil
	}

	var competitors []model.CompetitorSpec
	for _, spec := range roster {
		if b.compiled.Compiled(spec.RepositoryKey) {
			competitors = append(competitors, spec)
		}
	}
	if len(competitors) == 0 {
		metrics.RecordBattle(metrics.OutcomeSkipped)
		b.log.Info(ctx, "no compiled competitors, battle skipped", logger.String("request_id", r.ID))
		return nil
	}

	b.log.Info(ctx, "running battle",
		logger.String("key", key),
		logger.String("request_id", r.ID),
		logger.String("reason", r.Reason),
		logger.Int("competitors", len(competitors)))

	out, err := b.driver.RunBattle(ctx, competitors)
	if err != nil {
		return fmt.Errorf("battle %s: %w", key, err)
	}

	ts := b.now().UTC()
	md := map[string]string{poller.MetaTimestamp: poller.FormatTimestamp(ts)}
	if err := b.store.Put(ctx, key, out.Recording, md); err != nil {
		if errors.Is(err, blobstore.ErrExists) {
			// Another instance uploaded the same roster first; the poller
			// will fold its recording.
			b.log.Info(ctx, "recording uploaded concurrently", logger.String("key", key))
			return nil
		}
		return fmt.Errorf("upload %s: %w", key, err)
	}

	results := append([]model.RankedResult(nil), out.Results...)
	model.SortByRank(results)
	if _, err := b.history.Add(ctx, model.BattleStatistics{Key: key, Timestamp: ts, Results: results}); err != nil {
		return fmt.Errorf("record %s: %w", key, err)
	}
	metrics.UpdateHistorySize(b.history.Count(ctx))
	b.log.Info(ctx, "battle recorded", logger.String("key", key), logger.Int("results", len(results)))
	return nil
}
