package scorecheck

import (
	"errors"
	"fmt"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/types"
)

// Verify checks that sb ranks 1..N in order with non-increasing scores and
// that every entry equals the sum of its results over the battle list. All
// violations are returned together, each wrapping ErrInconsistent.
func Verify(sb types.Scoreboard) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...)))
	}

	seen := make(map[string]bool, len(sb.ScoreBoard))
	for i, r := range sb.ScoreBoard {
		if r.Rank != i+1 {
			fail("entry %d (%s) has rank %d", i, r.Robot.Name, r.Rank)
		}
		if i > 0 && r.Score > sb.ScoreBoard[i-1].Score {
			fail("%s scores %d above %s with %d", r.Robot.Name, r.Score, sb.ScoreBoard[i-1].Robot.Name, sb.ScoreBoard[i-1].Score)
		}
		if seen[r.Robot.Name] {
			fail("%s is listed twice", r.Robot.Name)
		}
		seen[r.Robot.Name] = true
	}

	sums := sumBattles(sb.BattleStatistics)
	for _, r := range sb.ScoreBoard {
		want, ok := sums[r.Robot.Name]
		if !ok {
			fail("%s is ranked but fought no battle", r.Robot.Name)
			continue
		}
		if diff := compareTotals(r, want); diff != "" {
			fail("%s %s", r.Robot.Name, diff)
		}
	}
	for name := range sums {
		if !seen[name] {
			fail("%s fought but is not ranked", name)
		}
	}
	return errors.Join(errs...)
}

func sumBattles(battles []types.BattleStatistics) map[string]types.RobotResults {
	sums := make(map[string]types.RobotResults)
	for _, b := range battles {
		for _, r := range b.Results {
			acc := sums[r.Robot.Name]
			acc.Robot = r.Robot
			acc.Score += r.Score
			acc.Survival += r.Survival
			acc.LastSurvivorBonus += r.LastSurvivorBonus
			acc.BulletDamage += r.BulletDamage
			acc.BulletDamageBonus += r.BulletDamageBonus
			acc.RamDamage += r.RamDamage
			acc.RamDamageBonus += r.RamDamageBonus
			acc.Firsts += r.Firsts
			acc.Seconds += r.Seconds
			acc.Thirds += r.Thirds
			sums[r.Robot.Name] = acc
		}
	}
	return sums
}

// compareTotals names the first sub-score where got and want differ.
func compareTotals(got, want types.RobotResults) string {
	fields := []struct {
		name      string
		got, want int
	}{
		{"score", got.Score, want.Score},
		{"survival", got.Survival, want.Survival},
		{"lastSurvivorBonus", got.LastSurvivorBonus, want.LastSurvivorBonus},
		{"bulletDamage", got.BulletDamage, want.BulletDamage},
		{"bulletDamageBonus", got.BulletDamageBonus, want.BulletDamageBonus},
		{"ramDamage", got.RamDamage, want.RamDamage},
		{"ramDamageBonus", got.RamDamageBonus, want.RamDamageBonus},
		{"firsts", got.Firsts, want.Firsts},
		{"seconds", got.Seconds, want.Seconds},
		{"thirds", got.Thirds, want.Thirds},
	}
	for _, f := range fields {
		if f.got != f.want {
			return fmt.Sprintf("%s is %d, battles sum to %d", f.name, f.got, f.want)
		}
	}
	return ""
}
