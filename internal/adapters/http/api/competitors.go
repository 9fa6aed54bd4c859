package api

import (
	"context"
	"net/http"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/types"
)

// CompetitorsDependencies lists the registered robots.
type CompetitorsDependencies interface {
	Competitors(ctx context.Context) ([]types.Competitor, error)
}

// CompetitorsHandler handles competitor listing requests.
type CompetitorsHandler struct {
	deps CompetitorsDependencies
}

// NewCompetitorsHandler creates a new competitors handler.
func NewCompetitorsHandler(deps CompetitorsDependencies) *CompetitorsHandler {
	return &CompetitorsHandler{deps: deps}
}

// HandleCompetitors handles GET /competitors requests.
func (h *CompetitorsHandler) HandleCompetitors(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competitors"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	cs, err := h.deps.Competitors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, cs)
}
