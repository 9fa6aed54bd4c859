package tournament

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/blobstore"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/engine"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/repository"
	"github.com/MiradoConsulting/RobocodeEngine/internal/app/poller"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/registry"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type fakeDriver struct {
	mu      sync.Mutex
	runs    int
	roster  [][]string
	fought  []string
	results []model.RankedResult
	err     error
}

func (d *fakeDriver) RunBattle(_ context.Context, competitors []model.CompetitorSpec) (engine.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runs++
	names := make([]string, 0, len(competitors))
	for _, c := range competitors {
		names = append(names, c.QualifiedClassName())
	}
	d.roster = append(d.roster, names)
	d.fought = append(d.fought, registry.Fingerprint(competitors))
	if d.err != nil {
		return engine.Outcome{}, d.err
	}
	return engine.Outcome{Results: d.results, Recording: []byte("recording")}, nil
}

type compiledSet map[string]bool

func (c compiledSet) Compiled(key string) bool { return c[key] }

func competitor(key, class, source string) model.CompetitorSpec {
	return model.CompetitorSpec{
		RepositoryKey: key,
		Name:          class,
		ClassName:     class,
		Package:       "arena",
		Source:        source,
		Language:      model.LanguageJava,
	}
}

func TestBattleRunner(t *testing.T) {
	Convey("Given a roster of two compiled competitors", t, func() {
		ctx := context.Background()
		reg := registry.New()
		reg.Put(ctx, "alpha", competitor("alpha", "Alpha", "class Alpha extends Robot {}"))
		reg.Put(ctx, "beta", competitor("beta", "Beta", "class Beta extends Robot {}"))
		compiled := compiledSet{"alpha": true, "beta": true}

		store := blobstore.NewMemoryStore()
		history := repository.NewMemoryStore()
		driver := &fakeDriver{results: []model.RankedResult{
			{Name: "arena.Beta", Rank: 2, Score: 40},
			{Name: "arena.Alpha", Rank: 1, Score: 90},
		}}
		now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
		b := NewBattleRunner(reg, compiled, driver, store, history,
			WithKeyPrefix("runs/"), WithClock(func() time.Time { return now }))
		key := "runs/" + reg.Fingerprint()

		Convey("When a battle request is handled", func() {
			err := b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r1"})

			Convey("Then the recording is uploaded under the roster fingerprint", func() {
				So(err, ShouldBeNil)
				So(b.KeyFor(reg.Fingerprint()), ShouldEqual, key)
				obj, gerr := store.Get(ctx, key)
				So(gerr, ShouldBeNil)
				So(string(obj.Body), ShouldEqual, "recording")
				ts, perr := poller.ParseTimestamp(obj.Metadata)
				So(perr, ShouldBeNil)
				So(ts.Equal(now), ShouldBeTrue)
			})

			Convey("Then the results are folded into history sorted by rank", func() {
				stats, gerr := history.Get(ctx, key)
				So(gerr, ShouldBeNil)
				So(stats.Timestamp.Equal(now), ShouldBeTrue)
				So(stats.Results[0].Name, ShouldEqual, "arena.Alpha")
				So(stats.Results[1].Name, ShouldEqual, "arena.Beta")
				So(driver.results[0].Name, ShouldEqual, "arena.Beta")
			})

			Convey("And the same roster is not fought twice", func() {
				So(b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r2"}), ShouldBeNil)
				So(driver.runs, ShouldEqual, 1)
				So(history.Count(ctx), ShouldEqual, 1)
			})

			Convey("And a changed roster fights again under a new key", func() {
				reg.Put(ctx, "beta", competitor("beta", "Beta", "class Beta extends Robot { /* v2 */ }"))
				So(b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r3"}), ShouldBeNil)
				So(driver.runs, ShouldEqual, 2)
				So(history.Count(ctx), ShouldEqual, 2)
			})
		})

		Convey("When one competitor failed to compile", func() {
			compiled["beta"] = false
			err := b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r1"})

			Convey("Then the battle runs without it", func() {
				So(err, ShouldBeNil)
				So(driver.roster[0], ShouldResemble, []string{"arena.Alpha"})
			})
		})

		Convey("When nothing compiled", func() {
			compiled["alpha"], compiled["beta"] = false, false
			err := b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r1"})

			Convey("Then no battle runs and nothing is uploaded", func() {
				So(err, ShouldBeNil)
				So(driver.runs, ShouldEqual, 0)
				ok, _ := store.Exists(ctx, key)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the engine fails", func() {
			driver.err = engine.ErrNoResults
			err := b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r1"})

			Convey("Then the error is returned and nothing is recorded", func() {
				So(errors.Is(err, engine.ErrNoResults), ShouldBeTrue)
				ok, _ := store.Exists(ctx, key)
				So(ok, ShouldBeFalse)
				So(history.Count(ctx), ShouldEqual, 0)
			})

			Convey("And the next request retries", func() {
				driver.err = nil
				So(b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r2"}), ShouldBeNil)
				So(driver.runs, ShouldEqual, 2)
			})
		})

		Convey("When discovery replaces a competitor while the archive is checked", func() {
			oldKey := key
			changing := &changingStore{Store: store, onExists: func() {
				reg.Put(ctx, "beta", competitor("beta", "Beta", "class Beta extends Robot { /* v2 */ }"))
			}}
			b := NewBattleRunner(reg, compiled, driver, changing, history, WithKeyPrefix("runs/"))
			err := b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r1"})

			Convey("Then the recording key names the roster that was fought", func() {
				So(err, ShouldBeNil)
				So(driver.fought, ShouldHaveLength, 1)
				So(oldKey, ShouldEqual, "runs/"+driver.fought[0])
				ok, _ := store.Exists(ctx, oldKey)
				So(ok, ShouldBeTrue)
			})

			Convey("And the new roster is still unarchived and fights next", func() {
				newKey := "runs/" + reg.Fingerprint()
				So(newKey, ShouldNotEqual, oldKey)
				ok, _ := store.Exists(ctx, newKey)
				So(ok, ShouldBeFalse)

				changing.onExists = nil
				So(b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r2"}), ShouldBeNil)
				So(driver.fought[1], ShouldEqual, reg.Fingerprint())
				So(history.Has(ctx, newKey), ShouldBeTrue)
			})
		})

		Convey("When another instance uploads the same roster mid-battle", func() {
			racing := &racingStore{Store: store, key: key}
			b := NewBattleRunner(reg, compiled, driver, racing, history)
			err := b.HandleBattleRequest(ctx, model.BattleRequest{ID: "r1"})

			Convey("Then the local result is dropped in favour of the stored one", func() {
				So(err, ShouldBeNil)
				So(history.Count(ctx), ShouldEqual, 0)
			})
		})
	})
}

// racingStore reports the key missing, then finds it taken at upload time.
type racingStore struct {
	blobstore.Store
	key string
}

func (s *racingStore) Put(ctx context.Context, key string, body []byte, md map[string]string) error {
	if key == s.key {
		_ = s.Store.Put(ctx, key, []byte("theirs"), md)
	}
	return s.Store.Put(ctx, key, body, md)
}

// changingStore runs onExists before answering an Exists call.
type changingStore struct {
	blobstore.Store
	onExists func()
}

func (s *changingStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.onExists != nil {
		s.onExists()
	}
	return s.Store.Exists(ctx, key)
}
