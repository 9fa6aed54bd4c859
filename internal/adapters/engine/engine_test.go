package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// scriptedEngine plays back a fixed sequence of listener events.
type scriptedEngine struct {
	results  []model.RankedResult
	complete bool
	aborted  bool
	err      error
	delay    time.Duration

	active  atomic.Int32
	overlap atomic.Bool
	calls   atomic.Int32
	spec    BattleSpec
}

func (e *scriptedEngine) Name() string { return "scripted" }

func (e *scriptedEngine) play(l Listener) ([]byte, error) {
	e.calls.Add(1)
	if e.active.Add(1) > 1 {
		e.overlap.Store(true)
	}
	defer e.active.Add(-1)
	time.Sleep(e.delay)

	l.BattleStarted(len(e.results))
	l.RoundStarted(1)
	l.RoundEnded(1)
	if e.err != nil {
		l.BattleError(e.err.Error())
		return nil, e.err
	}
	if e.complete {
		l.BattleCompleted(e.results)
	}
	l.BattleFinished(e.aborted)
	return []byte("rec"), nil
}

func (e *scriptedEngine) Run(_ context.Context, spec BattleSpec, l Listener) ([]byte, error) {
	e.spec = spec
	return e.play(l)
}

func (e *scriptedEngine) Replay(_ context.Context, _ []byte, l Listener) error {
	_, err := e.play(l)
	return err
}

func competitors(names ...string) []model.CompetitorSpec {
	out := make([]model.CompetitorSpec, 0, len(names))
	for _, n := range names {
		out = append(out, model.CompetitorSpec{ClassName: n, Package: "bots"})
	}
	return out
}

func TestDriverRunBattle(t *testing.T) {
	Convey("Given a driver over a scripted engine", t, func() {
		ctx := context.Background()
		eng := &scriptedEngine{
			complete: true,
			results:  []model.RankedResult{{Name: "bots.B", Rank: 2, Score: 5}, {Name: "bots.A", Rank: 1, Score: 10}},
		}
		d := NewDriver(eng, WithRounds(3), WithBattlefield(1000, 1000))

		Convey("When the battle completes", func() {
			out, err := d.RunBattle(ctx, competitors("A", "B"))

			Convey("Then results come back ordered by rank with the recording", func() {
				So(err, ShouldBeNil)
				So(out.Results, ShouldHaveLength, 2)
				So(out.Results[0].Name, ShouldEqual, "bots.A")
				So(string(out.Recording), ShouldEqual, "rec")
				So(d.LastState(), ShouldEqual, StateCompleted)
			})

			Convey("Then the engine got the configured battle", func() {
				So(eng.spec.Rounds, ShouldEqual, 3)
				So(eng.spec.Battlefield, ShouldResemble, Battlefield{Width: 1000, Height: 1000})
				So(eng.spec.Competitors, ShouldResemble, []string{"bots.A", "bots.B"})
			})
		})

		Convey("When the engine finishes without a result event", func() {
			eng.complete = false
			_, err := d.RunBattle(ctx, competitors("A"))

			Convey("Then it is an engine failure with no results", func() {
				So(errors.Is(err, ErrEngine), ShouldBeTrue)
				So(errors.Is(err, ErrNoResults), ShouldBeTrue)
			})
		})

		Convey("When the engine errors", func() {
			eng.err = errors.New("jvm crashed")
			_, err := d.RunBattle(ctx, competitors("A"))

			Convey("Then it is an engine failure and the state is errored", func() {
				So(errors.Is(err, ErrEngine), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "jvm crashed")
				So(d.LastState(), ShouldEqual, StateErrored)
			})
		})

		Convey("When the battle is aborted", func() {
			eng.complete = false
			eng.aborted = true
			_, err := d.RunBattle(ctx, competitors("A"))

			Convey("Then it is reported as aborted", func() {
				So(errors.Is(err, ErrAborted), ShouldBeTrue)
				So(d.LastState(), ShouldEqual, StateAborted)
			})
		})

		Convey("When there are no competitors", func() {
			_, err := d.RunBattle(ctx, nil)

			Convey("Then the engine is not called", func() {
				So(errors.Is(err, ErrNoCompetitors), ShouldBeTrue)
				So(eng.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When an empty recording is replayed", func() {
			_, err := d.Replay(ctx, nil)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrInvalidRecording), ShouldBeTrue)
			})
		})
	})
}

func TestDriverSerializes(t *testing.T) {
	Convey("Given concurrent runs and replays", t, func() {
		ctx := context.Background()
		eng := &scriptedEngine{complete: true, delay: 10 * time.Millisecond,
			results: []model.RankedResult{{Name: "bots.A", Rank: 1}}}
		d := NewDriver(eng)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func() { defer wg.Done(); _, _ = d.RunBattle(ctx, competitors("A")) }()
			go func() { defer wg.Done(); _, _ = d.Replay(ctx, []byte("rec")) }()
		}
		wg.Wait()

		Convey("Then the engine never ran two invocations at once", func() {
			So(eng.calls.Load(), ShouldEqual, 8)
			So(eng.overlap.Load(), ShouldBeFalse)
		})
	})
}

func TestStateString(t *testing.T) {
	Convey("Given lifecycle states", t, func() {
		So(StateIdle.String(), ShouldEqual, "idle")
		So(StateCompleted.String(), ShouldEqual, "completed")
		So(State(42).String(), ShouldEqual, "unknown")
	})
}
