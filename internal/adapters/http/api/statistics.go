package api

import (
	"context"
	"net/http"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/types"
)

// StatisticsDependencies reads tournament results.
type StatisticsDependencies interface {
	Scoreboard(ctx context.Context) (types.Scoreboard, error)
	Battles(ctx context.Context) (map[string]types.BattleStatistics, error)
}

// StatisticsHandler serves the scoreboard and the battle history.
type StatisticsHandler struct {
	deps StatisticsDependencies
}

// NewStatisticsHandler creates a new statistics handler.
func NewStatisticsHandler(deps StatisticsDependencies) *StatisticsHandler {
	return &StatisticsHandler{deps: deps}
}

// HandleScoreboard handles GET /statistics/scoreboard requests.
func (h *StatisticsHandler) HandleScoreboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scoreboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sb, err := h.deps.Scoreboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

// HandleBattles handles GET /statistics/battles requests.
func (h *StatisticsHandler) HandleBattles(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_battles"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	battles, err := h.deps.Battles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, battles)
}
