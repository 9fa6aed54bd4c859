package model

import (
	"sort"
	"time"
)

// RankedResult is one competitor's outcome in a single battle, or its
// all-time aggregate on the scoreboard.
type RankedResult struct {
	Name              string
	TeamLeaderName    string
	Rank              int
	Score             int
	Survival          int
	LastSurvivorBonus int
	BulletDamage      int
	BulletDamageBonus int
	RamDamage         int
	RamDamageBonus    int
	Firsts            int
	Seconds           int
	Thirds            int
}

// Add accumulates every numeric sub-score of other. Rank is left untouched.
func (r *RankedResult) Add(other RankedResult) {
	r.Score += other.Score
	r.Survival += other.Survival
	r.LastSurvivorBonus += other.LastSurvivorBonus
	r.BulletDamage += other.BulletDamage
	r.BulletDamageBonus += other.BulletDamageBonus
	r.RamDamage += other.RamDamage
	r.RamDamageBonus += other.RamDamageBonus
	r.Firsts += other.Firsts
	r.Seconds += other.Seconds
	r.Thirds += other.Thirds
}

// SortByRank orders results by ascending rank, keeping input order for equal ranks.
func SortByRank(results []RankedResult) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })
}

// BattleStatistics is the folded outcome of one recording.
type BattleStatistics struct {
	Key       string // blob key the recording was read from
	Timestamp time.Time
	Results   []RankedResult
}

// Clone returns a copy that shares no memory with s.
func (s BattleStatistics) Clone() BattleStatistics {
	out := s
	out.Results = append([]RankedResult(nil), s.Results...)
	return out
}

// Scoreboard is the all-time ranking plus the history it was computed from.
type Scoreboard struct {
	Results []RankedResult
	Battles []BattleStatistics // timestamp descending
}

// BattleRequest asks the battle worker to consider running the current roster.
type BattleRequest struct {
	ID          string
	Reason      string
	RequestedAt time.Time
}
