package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

// State is the lifecycle position of one run or replay.
type State int

// Lifecycle states. Running covers the round loop.
const (
	StateIdle State = iota
	StateStarted
	StateRunning
	StateCompleted
	StateAborted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

const (
	defaultRounds = 10
	defaultWidth  = 800
	defaultHeight = 600
)

// Driver serializes access to an Engine and turns its events into results.
type Driver struct {
	mu          sync.Mutex
	engine      Engine
	rounds      int
	battlefield Battlefield
	log         logger.Logger

	stateMu   sync.RWMutex
	lastState State
}

// NewDriver wraps engine.
func NewDriver(engine Engine, opts ...Option) *Driver {
	d := &Driver{
		engine:      engine,
		rounds:      defaultRounds,
		battlefield: Battlefield{Width: defaultWidth, Height: defaultHeight},
		log:         logger.Get().Named("battle-driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EngineName returns the wrapped engine's name.
func (d *Driver) EngineName() string { return d.engine.Name() }

// LastState returns the final state of the most recent invocation.
func (d *Driver) LastState() State {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.lastState
}

// RunBattle runs one battle between competitors with the configured rounds
// and battlefield. It blocks until the engine finishes; concurrent calls
// wait their turn.
func (d *Driver) RunBattle(ctx context.Context, competitors []model.CompetitorSpec) (Outcome, error) {
	if len(competitors) == 0 {
		return Outcome{}, ErrNoCompetitors
	}
	names := make([]string, 0, len(competitors))
	for _, c := range competitors {
		names = append(names, c.QualifiedClassName())
	}
	spec := BattleSpec{Rounds: d.rounds, Battlefield: d.battlefield, Competitors: names}

	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	inv := d.newInvocation(ctx, "run")
	d.log.Info(ctx, "battle starting",
		logger.String("engine", d.engine.Name()),
		logger.Int("competitors", len(names)),
		logger.Int("rounds", spec.Rounds))

	recording, err := d.engine.Run(ctx, spec, inv)
	results, err := d.finish(ctx, inv, err)
	if err != nil {
		metrics.RecordBattle(metrics.OutcomeFailed)
		return Outcome{}, err
	}

	metrics.RecordBattle(metrics.OutcomeCompleted)
	metrics.RecordBattleDuration(time.Since(start))
	d.log.Info(ctx, "battle completed",
		logger.Int("results", len(results)),
		logger.Int("recording_bytes", len(recording)),
		logger.Duration("took", time.Since(start)))
	return Outcome{Results: results, Recording: recording}, nil
}

// Replay re-executes recording and returns its results.
func (d *Driver) Replay(ctx context.Context, recording []byte) ([]model.RankedResult, error) {
	if len(recording) == 0 {
		return nil, ErrInvalidRecording
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	inv := d.newInvocation(ctx, "replay")
	err := d.engine.Replay(ctx, recording, inv)
	results, err := d.finish(ctx, inv, err)
	if err != nil {
		metrics.RecordReplay(metrics.OutcomeFailed)
		return nil, err
	}
	metrics.RecordReplay(metrics.OutcomeCompleted)
	metrics.RecordReplayDuration(time.Since(start))
	return results, nil
}

func (d *Driver) finish(ctx context.Context, inv *invocation, runErr error) ([]model.RankedResult, error) {
	state, results, engineErrs := inv.outcome(runErr)

	d.stateMu.Lock()
	d.lastState = state
	d.stateMu.Unlock()

	switch state {
	case StateCompleted:
		model.SortByRank(results)
		return results, nil
	case StateAborted:
		return nil, fmt.Errorf("%w: %w", ErrEngine, errors.Join(ErrAborted, runErr))
	case StateErrored:
		d.log.Error(ctx, "engine failed", logger.Error(runErr), logger.Int("engine_errors", len(engineErrs)))
		return nil, fmt.Errorf("%w: %w", ErrEngine, runErr)
	default:
		return nil, fmt.Errorf("%w: %w", ErrEngine, errors.Join(append([]error{ErrNoResults}, engineErrs...)...))
	}
}

func (d *Driver) newInvocation(ctx context.Context, kind string) *invocation {
	return &invocation{ctx: ctx, log: d.log, kind: kind, state: StateIdle}
}

// invocation tracks the state machine of one run or replay.
type invocation struct {
	mu      sync.Mutex
	ctx     context.Context //nolint:containedctx // scoped to a single engine call
	log     logger.Logger
	kind    string
	state   State
	aborted bool
	results []model.RankedResult
	errs    []error
}

func (i *invocation) BattleStarted(competitors int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = StateStarted
	i.log.Debug(i.ctx, "battle started", logger.String("kind", i.kind), logger.Int("competitors", competitors))
}

func (i *invocation) RoundStarted(round int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == StateStarted || i.state == StateRunning {
		i.state = StateRunning
	}
	i.log.Debug(i.ctx, "round started", logger.String("kind", i.kind), logger.Int("round", round))
}

func (i *invocation) RoundEnded(round int) {
	i.log.Debug(i.ctx, "round ended", logger.String("kind", i.kind), logger.Int("round", round))
}

func (i *invocation) BattleCompleted(results []model.RankedResult) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.results = append([]model.RankedResult(nil), results...)
	i.state = StateCompleted
}

func (i *invocation) BattleFinished(aborted bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if aborted {
		i.aborted = true
		i.state = StateAborted
	}
}

func (i *invocation) BattleError(msg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errs = append(i.errs, errors.New(msg))
	i.log.Warn(i.ctx, "engine reported an error", logger.String("kind", i.kind), logger.String("message", msg))
}

// outcome resolves the final state. An aborted battle stays aborted even
// if partial results were delivered; an engine error wins over everything else.
func (i *invocation) outcome(runErr error) (State, []model.RankedResult, []error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch {
	case i.aborted:
		i.state = StateAborted
	case runErr != nil:
		i.state = StateErrored
	}
	return i.state, i.results, i.errs
}
