// Package types contains the JSON shapes served over HTTP and read back by the scorecheck CLI.
package types

import (
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
)

// Robot identifies a competitor inside a result row.
type Robot struct {
	Name string `json:"name"`
}

// RobotResults is one ranked result row.
type RobotResults struct {
	Robot             Robot  `json:"robot"`
	TeamLeaderName    string `json:"teamLeaderName"`
	Rank              int    `json:"rank"`
	Score             int    `json:"score"`
	Survival          int    `json:"survival"`
	LastSurvivorBonus int    `json:"lastSurvivorBonus"`
	BulletDamage      int    `json:"bulletDamage"`
	BulletDamageBonus int    `json:"bulletDamageBonus"`
	RamDamage         int    `json:"ramDamage"`
	RamDamageBonus    int    `json:"ramDamageBonus"`
	Firsts            int    `json:"firsts"`
	Seconds           int    `json:"seconds"`
	Thirds            int    `json:"thirds"`
}

// BattleStatistics is one battle in the history.
type BattleStatistics struct {
	Key       string         `json:"key,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Results   []RobotResults `json:"results"`
}

// Scoreboard is the body of GET /statistics/scoreboard.
type Scoreboard struct {
	ScoreBoard       []RobotResults     `json:"scoreBoard"`
	BattleStatistics []BattleStatistics `json:"battleStatistics"`
}

// Competitor is one row of GET /competitors. Source text is never exposed.
type Competitor struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Owner        string    `json:"owner"`
	URL          string    `json:"url"`
	ClassName    string    `json:"className"`
	Language     string    `json:"language"`
	Version      string    `json:"version"`
	LastModified time.Time `json:"lastModified"`
	Compiled     bool      `json:"compiled"`
	CompileError string    `json:"compileError,omitempty"`
}

// FromResult converts a domain result to its JSON shape.
func FromResult(r model.RankedResult) RobotResults {
	return RobotResults{
		Robot:             Robot{Name: r.Name},
		TeamLeaderName:    r.TeamLeaderName,
		Rank:              r.Rank,
		Score:             r.Score,
		Survival:          r.Survival,
		LastSurvivorBonus: r.LastSurvivorBonus,
		BulletDamage:      r.BulletDamage,
		BulletDamageBonus: r.BulletDamageBonus,
		RamDamage:         r.RamDamage,
		RamDamageBonus:    r.RamDamageBonus,
		Firsts:            r.Firsts,
		Seconds:           r.Seconds,
		Thirds:            r.Thirds,
	}
}

// FromResults converts a result list, never returning nil.
func FromResults(rs []model.RankedResult) []RobotResults {
	out := make([]RobotResults, 0, len(rs))
	for _, r := range rs {
		out = append(out, FromResult(r))
	}
	return out
}

// FromBattle converts a history entry. Timestamps are rendered in UTC.
func FromBattle(b model.BattleStatistics) BattleStatistics {
	return BattleStatistics{
		Key:       b.Key,
		Timestamp: b.Timestamp.UTC(),
		Results:   FromResults(b.Results),
	}
}

// FromScoreboard converts an aggregated scoreboard.
func FromScoreboard(sb model.Scoreboard) Scoreboard {
	battles := make([]BattleStatistics, 0, len(sb.Battles))
	for _, b := range sb.Battles {
		battles = append(battles, FromBattle(b))
	}
	return Scoreboard{
		ScoreBoard:       FromResults(sb.Results),
		BattleStatistics: battles,
	}
}
