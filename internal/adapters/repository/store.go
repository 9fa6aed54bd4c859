// Package repository holds the battle history: one BattleStatistics per
// recording key, each contributed exactly once.
package repository

import (
	"context"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
)

// Store provides read/write access to the battle history.
type Store interface {
	// Add stores stats under stats.Key unless that key is already present.
	// Returns true if the entry was added, false if the key was known.
	Add(ctx context.Context, stats model.BattleStatistics) (bool, error)

	// Has reports whether key has been folded into the history.
	Has(ctx context.Context, key string) bool

	// Get returns the entry for key or ErrNotFound.
	Get(ctx context.Context, key string) (model.BattleStatistics, error)

	// Snapshot returns deep copies of every entry, ordered by key.
	Snapshot(ctx context.Context) []model.BattleStatistics

	// Count returns the number of battles in the history.
	Count(ctx context.Context) int
}
