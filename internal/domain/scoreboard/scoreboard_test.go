package scoreboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/scoreboard"
	. "github.com/smartystreets/goconvey/convey"
)

func battle(key string, ts time.Time, results ...model.RankedResult) model.BattleStatistics {
	return model.BattleStatistics{Key: key, Timestamp: ts, Results: results}
}

func result(name string, rank, score int) model.RankedResult {
	return model.RankedResult{Name: name, TeamLeaderName: name, Rank: rank, Score: score}
}

func TestCompute(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given two battles where the lead changes", t, func() {
		b1 := battle("runs/1", t0, result("A", 1, 10), result("B", 2, 5))
		b2 := battle("runs/2", t0.Add(time.Hour), result("B", 1, 20), result("A", 2, 3))

		Convey("When the scoreboard is computed", func() {
			sb := scoreboard.Compute([]model.BattleStatistics{b1, b2})

			Convey("Then scores are summed and ranked", func() {
				So(sb.Results, ShouldHaveLength, 2)
				So(sb.Results[0].Name, ShouldEqual, "B")
				So(sb.Results[0].Score, ShouldEqual, 25)
				So(sb.Results[0].Rank, ShouldEqual, 1)
				So(sb.Results[1].Name, ShouldEqual, "A")
				So(sb.Results[1].Score, ShouldEqual, 13)
				So(sb.Results[1].Rank, ShouldEqual, 2)
			})

			Convey("And the history is returned newest first", func() {
				So(sb.Battles, ShouldHaveLength, 2)
				So(sb.Battles[0].Key, ShouldEqual, "runs/2")
				So(sb.Battles[1].Key, ShouldEqual, "runs/1")
			})
		})
	})

	Convey("Given battles with every sub-score populated", t, func() {
		r1 := model.RankedResult{Name: "A", TeamLeaderName: "lead", Rank: 1, Score: 100, Survival: 50, LastSurvivorBonus: 10,
			BulletDamage: 30, BulletDamageBonus: 6, RamDamage: 3, RamDamageBonus: 1, Firsts: 5, Seconds: 2, Thirds: 1}
		r2 := r1
		r2.Rank = 2
		sb := scoreboard.Compute([]model.BattleStatistics{battle("k1", t0, r1), battle("k2", t0.Add(time.Minute), r2)})

		Convey("Then each one is summed independently", func() {
			got := sb.Results[0]
			So(got.Score, ShouldEqual, 200)
			So(got.Survival, ShouldEqual, 100)
			So(got.LastSurvivorBonus, ShouldEqual, 20)
			So(got.BulletDamage, ShouldEqual, 60)
			So(got.BulletDamageBonus, ShouldEqual, 12)
			So(got.RamDamage, ShouldEqual, 6)
			So(got.RamDamageBonus, ShouldEqual, 2)
			So(got.Firsts, ShouldEqual, 10)
			So(got.Seconds, ShouldEqual, 4)
			So(got.Thirds, ShouldEqual, 2)
			So(got.TeamLeaderName, ShouldEqual, "lead")
		})
	})

	Convey("Given competitors tied on total score", t, func() {
		older := battle("runs/old", t0, result("X", 1, 10), result("Y", 2, 5))
		newer := battle("runs/new", t0.Add(time.Hour), result("Y", 1, 5), result("X", 2, 0))

		sb := scoreboard.Compute([]model.BattleStatistics{older, newer})

		Convey("Then first-seen order over the newest-first history breaks the tie", func() {
			So(sb.Results[0].Score, ShouldEqual, sb.Results[1].Score)
			So(sb.Results[0].Name, ShouldEqual, "Y")
			So(sb.Results[1].Name, ShouldEqual, "X")
		})

		Convey("Then the result does not depend on input order", func() {
			again := scoreboard.Compute([]model.BattleStatistics{newer, older})
			So(again.Results, ShouldResemble, sb.Results)
		})
	})

	Convey("Given a varying number of competitors", t, func() {
		history := []model.BattleStatistics{
			battle("a", t0, result("P", 1, 7), result("Q", 2, 7), result("R", 3, 1)),
			battle("b", t0.Add(time.Second), result("S", 1, 50)),
			battle("c", t0.Add(2*time.Second), result("R", 1, 9), result("T", 2, 0)),
		}
		sb := scoreboard.Compute(history)

		Convey("Then ranks are exactly 1..N", func() {
			So(sb.Results, ShouldHaveLength, 5)
			for i, r := range sb.Results {
				So(r.Rank, ShouldEqual, i+1)
			}
		})

		Convey("Then scores are non-increasing", func() {
			for i := 1; i < len(sb.Results); i++ {
				So(sb.Results[i-1].Score, ShouldBeGreaterThanOrEqualTo, sb.Results[i].Score)
			}
		})

		Convey("Then the input history is left untouched", func() {
			So(history[0].Key, ShouldEqual, "a")
			So(history[0].Results[0].Rank, ShouldEqual, 1)
		})
	})

	Convey("Given an empty history", t, func() {
		sb := scoreboard.NewAggregator().Compute(context.Background(), nil)

		Convey("Then the scoreboard is empty", func() {
			So(sb.Results, ShouldBeEmpty)
			So(sb.Battles, ShouldBeEmpty)
		})
	})
}
