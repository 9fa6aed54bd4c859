package scorecheck

import (
	"context"
	"net/http"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

// Run fetches the scoreboard from cfg.BaseURL and verifies it.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	log := logger.Get().Named("scorecheck")
	start := time.Now()

	client := &http.Client{Timeout: cfg.Timeout}
	sb, err := fetchScoreboard(ctx, client, cfg.BaseURL)
	if err != nil {
		return Report{}, err
	}

	report := Report{Competitors: len(sb.ScoreBoard), Battles: len(sb.BattleStatistics)}
	if len(sb.ScoreBoard) > 0 {
		report.Leader = sb.ScoreBoard[0].Robot.Name
		report.LeaderScore = sb.ScoreBoard[0].Score
	}
	if cfg.Verbose {
		for _, r := range sb.ScoreBoard {
			log.Info(ctx, "ranked",
				logger.Int("rank", r.Rank),
				logger.String("robot", r.Robot.Name),
				logger.Int("score", r.Score))
		}
	}

	err = Verify(sb)
	report.Duration = time.Since(start)
	if err != nil {
		log.Error(ctx, "scoreboard failed verification", logger.Error(err))
		return report, err
	}
	log.Info(ctx, "scoreboard verified",
		logger.Int("competitors", report.Competitors),
		logger.Int("battles", report.Battles),
		logger.String("leader", report.Leader),
		logger.Duration("took", report.Duration))
	return report, nil
}
