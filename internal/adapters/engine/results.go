package engine

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
)

// resultRow matches one line of the engine's -results table:
//
//	1st: sample.Walls*	3091 (44%)	1650	330	938	164	0	0	9	1	0
var resultRow = regexp.MustCompile(
	`^\s*(\d+)(?:st|nd|rd|th):\s+(.+?)\s+(\d+)\s+\(\d+%\)` + strings.Repeat(`\s+(\d+)`, 9) + `\s*$`)

// roundLine matches the engine's per-round console banner.
var roundLine = regexp.MustCompile(`^Round (\d+) initializing`)

// ParseResults reads a -results table. Header and blank lines are skipped.
// Development-build markers ("*") are stripped from names.
func ParseResults(data []byte) []model.RankedResult {
	var out []model.RankedResult
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		m := resultRow.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		n := make([]int, 0, 11)
		for _, idx := range []int{1, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12} {
			v, err := strconv.Atoi(m[idx])
			if err != nil {
				n = nil
				break
			}
			n = append(n, v)
		}
		if n == nil {
			continue
		}
		name := strings.TrimSuffix(strings.TrimSpace(m[2]), "*")
		out = append(out, model.RankedResult{
			Name:              name,
			TeamLeaderName:    name,
			Rank:              n[0],
			Score:             n[1],
			Survival:          n[2],
			LastSurvivorBonus: n[3],
			BulletDamage:      n[4],
			BulletDamageBonus: n[5],
			RamDamage:         n[6],
			RamDamageBonus:    n[7],
			Firsts:            n[8],
			Seconds:           n[9],
			Thirds:            n[10],
		})
	}
	return out
}

// roundsIn returns the round numbers announced in console output.
func roundsIn(output []byte) []int {
	var rounds []int
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		if m := roundLine.FindStringSubmatch(strings.TrimSpace(sc.Text())); m != nil {
			if r, err := strconv.Atoi(m[1]); err == nil {
				rounds = append(rounds, r)
			}
		}
	}
	return rounds
}
