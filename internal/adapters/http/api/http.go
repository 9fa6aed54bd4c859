// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatisticsDependencies
	CompetitorsDependencies
	BattleRequester
}

// Server wires HTTP routes for the tournament API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	statisticsHandler  *StatisticsHandler
	competitorsHandler *CompetitorsHandler
	battlesHandler     *BattlesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		statisticsHandler:  NewStatisticsHandler(deps),
		competitorsHandler: NewCompetitorsHandler(deps),
		battlesHandler:     NewBattlesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/statistics/scoreboard", MetricsMiddleware(s.statisticsHandler.HandleScoreboard, "scoreboard"))
	mux.HandleFunc("/statistics/battles", MetricsMiddleware(s.statisticsHandler.HandleBattles, "battles"))
	mux.HandleFunc("/competitors", MetricsMiddleware(s.competitorsHandler.HandleCompetitors, "competitors"))
	mux.HandleFunc("/battles", MetricsMiddleware(s.battlesHandler.HandlePostBattle, "battles_request"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
