// Package tournament decides when battles run and what they run with.
//
// Discovery feeds the registry; every change enqueues a battle request. The
// battle runner turns a request into at most one battle per distinct roster:
// the roster fingerprint names the recording, and an existing recording
// means the battle has already been fought.
package tournament

import (
	"context"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/engine"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
)

// Roster is the registry as the tournament sees it.
type Roster interface {
	Get(key string) (model.CompetitorSpec, bool)
	Put(ctx context.Context, key string, spec model.CompetitorSpec)
	Snapshot() []model.CompetitorSpec
}

// CompileStatus reports whether a competitor is ready to fight.
type CompileStatus interface {
	Compiled(key string) bool
}

// BattleDriver runs one battle.
type BattleDriver interface {
	RunBattle(ctx context.Context, competitors []model.CompetitorSpec) (engine.Outcome, error)
}

// Enqueuer accepts battle requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, r model.BattleRequest) bool
}
