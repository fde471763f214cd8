package handler

import (
	"log/slog"
	"net/http"

	"github.com/mward/vitalog/internal/stats"
)

type StatsHandler struct {
	stats  *stats.Service
	logger *slog.Logger
}

func NewStatsHandler(s *stats.Service, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: s, logger: logger}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.stats.Snapshot()
	if err != nil {
		h.logger.Error("build stats snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build stats")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
