package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/magiconair/properties"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/process"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

const robocodeMain = "robocode.Robocode"

// RobocodeOption configures a Robocode engine.
type RobocodeOption func(*Robocode)

// WithJavaBinary sets the java launcher.
func WithJavaBinary(bin string) RobocodeOption {
	return func(r *Robocode) {
		if bin != "" {
			r.java = bin
		}
	}
}

// WithJVMArgs replaces the JVM arguments placed before the classpath.
func WithJVMArgs(args ...string) RobocodeOption {
	return func(r *Robocode) {
		r.jvmArgs = append([]string(nil), args...)
	}
}

// WithRunner substitutes the process runner, mainly for tests.
func WithRunner(runner process.Runner) RobocodeOption {
	return func(r *Robocode) {
		if runner != nil {
			r.runner = runner
		}
	}
}

// WithScratchDir sets where per-battle working files are created.
func WithScratchDir(dir string) RobocodeOption {
	return func(r *Robocode) {
		if dir != "" {
			r.scratch = dir
		}
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(l logger.Logger) RobocodeOption {
	return func(r *Robocode) {
		if l != nil {
			r.log = l
		}
	}
}

// Robocode runs the Robocode engine as a child JVM through its public
// command line: -battle, -record, -replay and -results.
type Robocode struct {
	home      string // install dir holding libs/robocode.jar
	robotsDir string // competitors root, passed as ROBOTPATH
	java      string
	jvmArgs   []string
	scratch   string
	runner    process.Runner
	log       logger.Logger
}

// NewRobocode creates an engine for the installation at home that loads
// competitors from robotsDir.
func NewRobocode(home, robotsDir string, opts ...RobocodeOption) *Robocode {
	r := &Robocode{
		home:      home,
		robotsDir: robotsDir,
		java:      "java",
		jvmArgs:   []string{"-Xmx512M", "-Djava.awt.headless=true", "-Dsun.io.useCanonCaches=false"},
		scratch:   os.TempDir(),
		runner:    process.ExecRunner{},
		log:       logger.Get().Named("robocode"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements Engine.
func (r *Robocode) Name() string { return "robocode" }

// Run implements Engine.
func (r *Robocode) Run(ctx context.Context, spec BattleSpec, l Listener) ([]byte, error) {
	dir, cleanup, err := r.workdir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	battleFile := filepath.Join(dir, "tournament.battle")
	if err := writeBattleFile(battleFile, spec); err != nil {
		return nil, err
	}
	recordFile := filepath.Join(dir, "battle.br")
	resultsFile := filepath.Join(dir, "results.txt")

	l.BattleStarted(len(spec.Competitors))
	if err := r.invoke(ctx, l, resultsFile, "-battle", battleFile, "-record", recordFile); err != nil {
		return nil, err
	}

	results, err := readResults(resultsFile)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		l.BattleFinished(false)
		return nil, nil
	}

	recording, err := os.ReadFile(recordFile)
	if err != nil {
		l.BattleError("recording missing: " + err.Error())
		return nil, fmt.Errorf("read recording: %w", err)
	}
	l.BattleCompleted(results)
	l.BattleFinished(false)
	return recording, nil
}

// Replay implements Engine.
func (r *Robocode) Replay(ctx context.Context, recording []byte, l Listener) error {
	dir, cleanup, err := r.workdir()
	if err != nil {
		return err
	}
	defer cleanup()

	recordFile := filepath.Join(dir, "replay.br")
	if err := os.WriteFile(recordFile, recording, 0o600); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	resultsFile := filepath.Join(dir, "results.txt")

	l.BattleStarted(0)
	if err := r.invoke(ctx, l, resultsFile, "-replay", recordFile); err != nil {
		return err
	}

	results, err := readResults(resultsFile)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		l.BattleCompleted(results)
	}
	l.BattleFinished(false)
	return nil
}

func (r *Robocode) invoke(ctx context.Context, l Listener, resultsFile string, mode ...string) error {
	args := append([]string(nil), r.jvmArgs...)
	args = append(args,
		"-DROBOTPATH="+r.robotsDir,
		"-cp", filepath.Join("libs", "*"),
		robocodeMain,
	)
	args = append(args, mode...)
	args = append(args, "-results", resultsFile, "-nodisplay", "-nosound")

	res, err := r.runner.Run(ctx, r.home, r.java, args...)
	// Rounds are read from the finished process output.
	for _, round := range roundsIn(res.Output) {
		l.RoundStarted(round)
		l.RoundEnded(round)
	}
	if err != nil {
		if ctx.Err() != nil {
			l.BattleFinished(true)
		}
		return err
	}
	if res.ExitCode != 0 {
		msg := fmt.Sprintf("engine exited with code %d: %s", res.ExitCode, tail(res.Output, 2048))
		l.BattleError(msg)
		return errors.New(msg)
	}
	r.log.Debug(ctx, "engine finished", logger.Duration("took", res.Duration))
	return nil
}

func (r *Robocode) workdir() (string, func(), error) {
	dir := filepath.Join(r.scratch, "roboarena-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func writeBattleFile(path string, spec BattleSpec) error {
	selected := make([]string, 0, len(spec.Competitors))
	for _, c := range spec.Competitors {
		// "*" selects the development build compiled in place under ROBOTPATH.
		selected = append(selected, c+"*")
	}

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, kv := range [][2]string{
		{"robocode.battleField.width", strconv.Itoa(spec.Battlefield.Width)},
		{"robocode.battleField.height", strconv.Itoa(spec.Battlefield.Height)},
		{"robocode.battle.numRounds", strconv.Itoa(spec.Rounds)},
		{"robocode.battle.gunCoolingRate", "0.1"},
		{"robocode.battle.rules.inactivityTime", "450"},
		{"robocode.battle.hideEnemyNames", "true"},
		{"robocode.battle.selectedRobots", strings.Join(selected, ",")},
	} {
		if _, _, err := p.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("battle file %s: %w", kv[0], err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create battle file: %w", err)
	}
	if _, err := p.Write(f, properties.UTF8); err != nil {
		_ = f.Close()
		return fmt.Errorf("write battle file: %w", err)
	}
	return f.Close()
}

func readResults(path string) ([]model.RankedResult, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return ParseResults(data), nil
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
