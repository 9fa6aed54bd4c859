package engine

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/magiconair/properties"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/process"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeJVM stands in for the engine process: it inspects the arguments and
// writes the files the real engine would.
type fakeJVM struct {
	dir       string
	args      []string
	battle    *properties.Properties
	results   string
	recording []byte
	replayed  []byte
	exitCode  int
	output    string
	onRun     func()
}

func (f *fakeJVM) Run(_ context.Context, dir, _ string, args ...string) (process.Result, error) {
	f.dir = dir
	f.args = args
	flag := func(name string) string {
		for i, a := range args {
			if a == name && i+1 < len(args) {
				return args[i+1]
			}
		}
		return ""
	}
	if p := flag("-battle"); p != "" {
		f.battle = properties.MustLoadFile(p, properties.UTF8)
	}
	if p := flag("-replay"); p != "" {
		f.replayed, _ = os.ReadFile(p)
	}
	if p := flag("-record"); p != "" && f.recording != nil {
		_ = os.WriteFile(p, f.recording, 0o600)
	}
	if p := flag("-results"); p != "" && f.results != "" {
		_ = os.WriteFile(p, []byte(f.results), 0o600)
	}
	if f.onRun != nil {
		f.onRun()
	}
	return process.Result{ExitCode: f.exitCode, Output: []byte(f.output)}, nil
}

// eventLog is a Listener that records event names in order.
type eventLog struct {
	events []string
}

func (e *eventLog) BattleStarted(int)                    { e.events = append(e.events, "started") }
func (e *eventLog) RoundStarted(r int)                   { e.events = append(e.events, "round-start-"+strconv.Itoa(r)) }
func (e *eventLog) RoundEnded(r int)                     { e.events = append(e.events, "round-end-"+strconv.Itoa(r)) }
func (e *eventLog) BattleCompleted([]model.RankedResult) { e.events = append(e.events, "completed") }
func (e *eventLog) BattleFinished(bool)                  { e.events = append(e.events, "finished") }
func (e *eventLog) BattleError(string)                   { e.events = append(e.events, "error") }

func TestRobocodeEngine(t *testing.T) {
	Convey("Given the robocode adapter over a fake JVM", t, func() {
		ctx := context.Background()
		jvm := &fakeJVM{
			results:   sampleResults,
			recording: []byte("binary-recording"),
			output:    "Round 1 initializing..\nRound 2 initializing..\n",
		}
		eng := NewRobocode("/opt/robocode", "/srv/robots",
			WithRunner(jvm), WithJavaBinary("java17"), WithScratchDir(t.TempDir()))
		d := NewDriver(eng, WithRounds(10), WithBattlefield(800, 600))

		Convey("When a battle is run", func() {
			out, err := d.RunBattle(ctx, competitors("Walls", "Crazy"))

			Convey("Then results and recording are captured", func() {
				So(err, ShouldBeNil)
				So(out.Results, ShouldHaveLength, 3)
				So(out.Results[0].Name, ShouldEqual, "sample.Walls")
				So(string(out.Recording), ShouldEqual, "binary-recording")
			})

			Convey("Then the engine was launched from its home with the public command line", func() {
				So(jvm.dir, ShouldEqual, "/opt/robocode")
				cmd := strings.Join(jvm.args, " ")
				So(cmd, ShouldContainSubstring, "-DROBOTPATH=/srv/robots")
				So(cmd, ShouldContainSubstring, "robocode.Robocode -battle")
				So(cmd, ShouldContainSubstring, "-record")
				So(cmd, ShouldContainSubstring, "-nodisplay")
			})

			Convey("Then the battle file describes the battle", func() {
				So(jvm.battle.GetString("robocode.battle.numRounds", ""), ShouldEqual, "10")
				So(jvm.battle.GetString("robocode.battleField.width", ""), ShouldEqual, "800")
				So(jvm.battle.GetString("robocode.battle.selectedRobots", ""), ShouldEqual, "bots.Walls*,bots.Crazy*")
			})
		})

		Convey("When a listener follows a battle", func() {
			events := &eventLog{}
			jvm.onRun = func() { events.events = append(events.events, "process-exited") }
			_, err := eng.Run(ctx, BattleSpec{Rounds: 2, Competitors: []string{"sample.Walls"}}, events)

			Convey("Then rounds are reported after the process has exited", func() {
				So(err, ShouldBeNil)
				So(events.events, ShouldResemble, []string{
					"started", "process-exited",
					"round-start-1", "round-end-1", "round-start-2", "round-end-2",
					"completed", "finished",
				})
			})
		})

		Convey("When a recording is replayed", func() {
			results, err := d.Replay(ctx, []byte("stored-recording"))

			Convey("Then the recording is handed to the engine and its results parsed", func() {
				So(err, ShouldBeNil)
				So(string(jvm.replayed), ShouldEqual, "stored-recording")
				So(results, ShouldHaveLength, 3)
			})
		})

		Convey("When the engine writes no results", func() {
			jvm.results = ""
			_, err := d.RunBattle(ctx, competitors("Walls"))

			Convey("Then the driver reports no results", func() {
				So(errors.Is(err, ErrNoResults), ShouldBeTrue)
			})
		})

		Convey("When the engine exits non-zero", func() {
			jvm.exitCode = 1
			jvm.output = "java.lang.NoClassDefFoundError"
			_, err := d.RunBattle(ctx, competitors("Walls"))

			Convey("Then it is an engine failure carrying the output", func() {
				So(errors.Is(err, ErrEngine), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "NoClassDefFoundError")
			})
		})
	})
}
