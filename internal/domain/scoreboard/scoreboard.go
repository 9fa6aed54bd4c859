// Package scoreboard merges battle history into one all-time ranking.
package scoreboard

import (
	"context"
	"sort"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

// Aggregator computes scoreboards and records how long that takes.
type Aggregator struct{}

// NewAggregator creates an Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Compute is Compute with a latency observation.
func (a *Aggregator) Compute(_ context.Context, history []model.BattleStatistics) model.Scoreboard {
	start := time.Now()
	sb := Compute(history)
	metrics.RecordScoreboardLatency(float64(time.Since(start).Microseconds()) / 1000)
	return sb
}

// Compute ranks every competitor that appears in history.
//
// History is ordered by timestamp descending (blob key ascending for equal
// timestamps). Competitors are collected in first-seen order over that
// sequence, every numeric sub-score is summed per name, and the totals are
// stable-sorted by score descending, so equal scores keep first-seen order.
// Ranks are 1..N. The input slice is not modified.
func Compute(history []model.BattleStatistics) model.Scoreboard {
	battles := make([]model.BattleStatistics, 0, len(history))
	for _, b := range history {
		battles = append(battles, b.Clone())
	}
	sort.SliceStable(battles, func(i, j int) bool {
		if !battles[i].Timestamp.Equal(battles[j].Timestamp) {
			return battles[i].Timestamp.After(battles[j].Timestamp)
		}
		return battles[i].Key < battles[j].Key
	})

	totals := make(map[string]*model.RankedResult)
	order := make([]string, 0)
	for _, b := range battles {
		for _, r := range b.Results {
			acc, ok := totals[r.Name]
			if !ok {
				acc = &model.RankedResult{Name: r.Name, TeamLeaderName: r.TeamLeaderName}
				totals[r.Name] = acc
				order = append(order, r.Name)
			}
			acc.Add(r)
		}
	}

	results := make([]model.RankedResult, 0, len(order))
	for _, name := range order {
		results = append(results, *totals[name])
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	for i := range results {
		results[i].Rank = i + 1
	}

	return model.Scoreboard{Results: results, Battles: battles}
}
