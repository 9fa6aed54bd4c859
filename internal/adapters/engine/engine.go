// Package engine drives a battle-simulation engine: it runs battles between
// compiled competitors, captures ranked results and a recording, and replays
// recordings to reproduce their results.
package engine

import (
	"context"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
)

// Battlefield is the arena size in engine units.
type Battlefield struct {
	Width  int
	Height int
}

// BattleSpec is everything an engine needs to run one battle.
type BattleSpec struct {
	Rounds      int
	Battlefield Battlefield
	// Competitors are qualified class names, e.g. "sample.Walls".
	Competitors []string
}

// Outcome is a completed battle.
type Outcome struct {
	Results   []model.RankedResult // ordered by rank
	Recording []byte
}

// Listener receives lifecycle events from an engine for one run or replay.
//
// Event order is guaranteed, timing is not. The simulator calls the round
// hooks as it plays each round. The robocode adapter only sees the child
// process output, so it reports every round back to back after the process
// has exited; a listener must not treat round events as live progress.
type Listener interface {
	BattleStarted(competitors int)
	RoundStarted(round int)
	RoundEnded(round int)
	BattleCompleted(results []model.RankedResult)
	BattleFinished(aborted bool)
	BattleError(msg string)
}

// Engine is a battle-simulation backend. Results are delivered only through
// Listener.BattleCompleted; an engine that finishes without calling it has
// produced no results.
type Engine interface {
	// Run executes a battle and returns its recording.
	Run(ctx context.Context, spec BattleSpec, l Listener) ([]byte, error)
	// Replay re-executes a recording.
	Replay(ctx context.Context, recording []byte, l Listener) error
	// Name identifies the backend in logs and stats.
	Name() string
}
