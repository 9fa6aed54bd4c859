package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// BattleRequester queues a battle for the current roster.
type BattleRequester interface {
	RequestBattle(ctx context.Context, reason string) bool
}

// BattlesHandler handles manual battle requests.
type BattlesHandler struct {
	deps BattleRequester
}

// NewBattlesHandler creates a new battles handler.
func NewBattlesHandler(deps BattleRequester) *BattlesHandler {
	return &BattlesHandler{deps: deps}
}

type battleRequest struct {
	Reason string `json:"reason"`
}

type ackResponse struct {
	Status string `json:"status"`
}

// HandlePostBattle handles POST /battles requests. The body is optional.
// A stopped service or a full queue answers 503.
func (h *BattlesHandler) HandlePostBattle(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_battle"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req := battleRequest{Reason: "manual request"}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if !h.deps.RequestBattle(r.Context(), req.Reason) {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, ErrUnavailable))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
