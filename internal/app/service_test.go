package service_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/blobstore"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/compiler"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/engine"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/repository"
	service "github.com/MiradoConsulting/RobocodeEngine/internal/app"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func robot(key, class string) model.CompetitorSpec {
	return model.CompetitorSpec{
		RepositoryKey: key,
		Name:          class,
		Owner:         key + "-owner",
		ClassName:     class,
		Package:       "arena",
		Source:        "class " + class + " extends Robot {}",
		Language:      model.LanguageJava,
		LastModified:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// stubCompiler marks only the keys it was told about as compiled.
type stubCompiler struct {
	ok map[string]bool
}

func (c *stubCompiler) OnPut(context.Context, model.CompetitorSpec) {}

func (c *stubCompiler) Compiled(key string) bool { return c.ok[key] }

func (c *stubCompiler) Statuses() []compiler.Status {
	out := make([]compiler.Status, 0, len(c.ok))
	for key, ok := range c.ok {
		st := compiler.Status{Key: key, Compiled: ok}
		if !ok {
			st.Error = "exit status 1"
		}
		out = append(out, st)
	}
	return out
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service with default collaborators", t, func() {
		svc := service.New(service.WithPollInterval(time.Hour))

		Convey("When it has not been started", func() {
			stats := svc.GetStats()

			Convey("Then the stats describe an idle service", func() {
				So(stats["started"], ShouldEqual, false)
				So(stats["engine"], ShouldEqual, "sim")
				So(stats["engineState"], ShouldEqual, engine.StateIdle.String())
				So(stats["competitors"], ShouldEqual, 0)
				So(stats["discovery"], ShouldEqual, false)
				So(stats, ShouldNotContainKey, "queueLength")
			})

			Convey("Then battle requests are refused", func() {
				So(svc.RequestBattle(context.Background(), "test"), ShouldBeFalse)
			})
		})

		Convey("When it is started and stopped", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			running := svc.GetStats()
			svc.Stop()
			svc.Stop()

			Convey("Then the running stats include the queue and workers", func() {
				So(running["started"], ShouldEqual, true)
				So(running, ShouldContainKey, "queueLength")
				So(running, ShouldContainKey, "activeWorkers")
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestServiceTournament(t *testing.T) {
	Convey("Given a running service on the simulator", t, func() {
		ctx := context.Background()
		store := blobstore.NewMemoryStore()
		history := repository.NewMemoryStore()
		svc := service.New(
			service.WithBlobStore(store),
			service.WithHistory(history),
			service.WithPollInterval(time.Hour),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When two competitors are registered", func() {
			svc.Register(ctx, "alpha", robot("alpha", "Alpha"))
			svc.Register(ctx, "beta", robot("beta", "Beta"))

			fp := svc.GetStats()["fingerprint"].(string)
			key := "runs/" + fp
			So(eventually(func() bool { return history.Has(ctx, key) }), ShouldBeTrue)

			Convey("Then the battle for the full roster is recorded", func() {
				ok, err := store.Exists(ctx, key)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				battles, err := svc.Battles(ctx)
				So(err, ShouldBeNil)
				So(battles, ShouldContainKey, key)
				So(len(battles[key].Results), ShouldEqual, 2)
			})

			Convey("Then the scoreboard ranks both competitors", func() {
				sb, err := svc.Scoreboard(ctx)
				So(err, ShouldBeNil)
				So(len(sb.ScoreBoard), ShouldBeGreaterThanOrEqualTo, 2)
				So(sb.ScoreBoard[0].Rank, ShouldEqual, 1)
				So(sb.ScoreBoard[1].Rank, ShouldEqual, 2)
				So(sb.ScoreBoard[0].Score, ShouldBeGreaterThanOrEqualTo, sb.ScoreBoard[1].Score)
			})

			Convey("Then both competitors are listed as compiled", func() {
				cs, err := svc.Competitors(ctx)
				So(err, ShouldBeNil)
				So(len(cs), ShouldEqual, 2)
				So(cs[0].Key, ShouldEqual, "alpha")
				So(cs[0].ClassName, ShouldEqual, "arena.Alpha")
				So(cs[0].Owner, ShouldEqual, "alpha-owner")
				So(cs[0].Compiled, ShouldBeTrue)
				So(cs[1].Key, ShouldEqual, "beta")
			})

			Convey("And a second instance sharing the store rebuilds the same scoreboard", func() {
				other := service.New(service.WithBlobStore(store))
				stats, err := other.Poll(ctx)
				So(err, ShouldBeNil)
				So(stats.Added, ShouldBeGreaterThanOrEqualTo, 1)

				mine, _ := svc.Scoreboard(ctx)
				theirs, _ := other.Scoreboard(ctx)
				So(theirs.ScoreBoard, ShouldResemble, mine.ScoreBoard)
			})
		})
	})
}

func TestServiceCompileStatus(t *testing.T) {
	Convey("Given a service whose compiler rejected one competitor", t, func() {
		ctx := context.Background()
		comp := &stubCompiler{ok: map[string]bool{"alpha": true, "beta": false}}
		svc := service.New(service.WithCompiler(comp))
		svc.Register(ctx, "alpha", robot("alpha", "Alpha"))
		svc.Register(ctx, "beta", robot("beta", "Beta"))

		Convey("When competitors are listed", func() {
			cs, err := svc.Competitors(ctx)

			Convey("Then the compile outcome is reported per competitor", func() {
				So(err, ShouldBeNil)
				So(cs[0].Compiled, ShouldBeTrue)
				So(cs[0].CompileError, ShouldBeEmpty)
				So(cs[1].Compiled, ShouldBeFalse)
				So(cs[1].CompileError, ShouldEqual, "exit status 1")
				So(svc.Compiled("beta"), ShouldBeFalse)
			})
		})
	})
}
