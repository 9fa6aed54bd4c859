package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
)

const simFormat = "roboarena-sim/1"

// Limits on a decoded recording. Replays hold the driver lock, so a stored
// blob must not be able to ask for unbounded work.
const (
	maxSimRounds         = 10000
	maxSimCompetitors    = 1000
	maxSimRecordingBytes = 1 << 20
)

// Points awarded by the simulator, in the engine's scoring units.
const (
	survivalPerEnemy     = 50
	lastSurvivorPerEnemy = 10
	maxBulletDamage      = 120
	bulletBonusPercent   = 20
	maxRamHits           = 10
	ramDamagePerHit      = 2
	ramBonusPercent      = 30
)

// simRecording is the gzip-compressed JSON body of a simulator recording.
// Replaying re-simulates from these inputs.
type simRecording struct {
	Format      string      `json:"format"`
	Seed        uint64      `json:"seed"`
	Rounds      int         `json:"rounds"`
	Battlefield Battlefield `json:"battlefield"`
	Competitors []string    `json:"competitors"`
}

// Simulator is a deterministic in-process engine. It does no physics: each
// round draws a finishing order from a PRNG seeded by the battle inputs and
// scores it the way the real engine's table is laid out. Used for tests and
// for running the tournament without a JVM.
type Simulator struct {
	salt uint64
}

// NewSimulator creates a Simulator. salt is mixed into every battle seed.
func NewSimulator(salt uint64) *Simulator {
	return &Simulator{salt: salt}
}

// Name implements Engine.
func (s *Simulator) Name() string { return "sim" }

// Run implements Engine.
func (s *Simulator) Run(ctx context.Context, spec BattleSpec, l Listener) ([]byte, error) {
	if spec.Rounds > maxSimRounds {
		return nil, fmt.Errorf("%w: %d rounds exceeds %d", ErrEngine, spec.Rounds, maxSimRounds)
	}
	competitors := append([]string(nil), spec.Competitors...)
	sort.Strings(competitors)
	rec := simRecording{
		Format:      simFormat,
		Seed:        s.seed(spec.Rounds, spec.Battlefield, competitors),
		Rounds:      spec.Rounds,
		Battlefield: spec.Battlefield,
		Competitors: competitors,
	}

	if !simulate(ctx, rec, l) {
		return nil, ctx.Err()
	}
	return encodeRecording(rec)
}

// Replay implements Engine.
func (s *Simulator) Replay(ctx context.Context, recording []byte, l Listener) error {
	rec, err := decodeRecording(recording)
	if err != nil {
		return err
	}
	if !simulate(ctx, rec, l) {
		return ctx.Err()
	}
	return nil
}

func (s *Simulator) seed(rounds int, bf Battlefield, competitors []string) uint64 {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.salt)
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(strconv.Itoa(rounds) + "|" + strconv.Itoa(bf.Width) + "x" + strconv.Itoa(bf.Height)))
	for _, c := range competitors {
		_, _ = h.Write([]byte("|" + c))
	}
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}

// simulate reports false if ctx ended before the battle completed.
func simulate(ctx context.Context, rec simRecording, l Listener) bool {
	n := len(rec.Competitors)
	l.BattleStarted(n)

	rng := rand.New(rand.NewPCG(rec.Seed, rec.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible by design
	totals := make([]model.RankedResult, n)
	for i, name := range rec.Competitors {
		totals[i] = model.RankedResult{Name: name, TeamLeaderName: name}
	}

	for round := 1; round <= rec.Rounds; round++ {
		if ctx.Err() != nil {
			l.BattleFinished(true)
			return false
		}
		l.RoundStarted(round)
		for place, idx := range rng.Perm(n) {
			scoreRound(&totals[idx], place, n, rng)
		}
		l.RoundEnded(round)
	}

	for i := range totals {
		t := &totals[i]
		t.Score = t.Survival + t.LastSurvivorBonus + t.BulletDamage + t.BulletDamageBonus + t.RamDamage + t.RamDamageBonus
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Score != totals[j].Score {
			return totals[i].Score > totals[j].Score
		}
		return totals[i].Name < totals[j].Name
	})
	for i := range totals {
		totals[i].Rank = i + 1
	}

	l.BattleCompleted(totals)
	l.BattleFinished(false)
	return true
}

func scoreRound(r *model.RankedResult, place, n int, rng *rand.Rand) {
	r.Survival += survivalPerEnemy * (n - 1 - place)

	bullet := rng.IntN(maxBulletDamage + 1)
	ram := rng.IntN(maxRamHits+1) * ramDamagePerHit
	r.BulletDamage += bullet
	r.RamDamage += ram

	switch place {
	case 0:
		r.Firsts++
		if n > 1 {
			r.LastSurvivorBonus += lastSurvivorPerEnemy * (n - 1)
			r.BulletDamageBonus += bullet * bulletBonusPercent / 100
			r.RamDamageBonus += ram * ramBonusPercent / 100
		}
	case 1:
		r.Seconds++
	case 2:
		r.Thirds++
	}
}

func encodeRecording(rec simRecording) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(rec); err != nil {
		return nil, fmt.Errorf("encode recording: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("encode recording: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecording(data []byte) (simRecording, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return simRecording{}, fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}
	defer func() { _ = zr.Close() }()

	raw, err := io.ReadAll(io.LimitReader(zr, maxSimRecordingBytes+1))
	if err != nil {
		return simRecording{}, fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}
	if len(raw) > maxSimRecordingBytes {
		return simRecording{}, fmt.Errorf("%w: larger than %d bytes", ErrInvalidRecording, maxSimRecordingBytes)
	}
	var rec simRecording
	if err := json.Unmarshal(raw, &rec); err != nil {
		return simRecording{}, fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}
	if rec.Format != simFormat {
		return simRecording{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidRecording, rec.Format)
	}
	if rec.Rounds < 1 || rec.Rounds > maxSimRounds {
		return simRecording{}, fmt.Errorf("%w: %d rounds", ErrInvalidRecording, rec.Rounds)
	}
	if len(rec.Competitors) > maxSimCompetitors {
		return simRecording{}, fmt.Errorf("%w: %d competitors", ErrInvalidRecording, len(rec.Competitors))
	}
	return rec, nil
}
