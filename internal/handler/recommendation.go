package handler

import (
	"log/slog"
	"net/http"

	"github.com/mward/vitalog/internal/model"
	"github.com/mward/vitalog/internal/store"
)

type RecommendationHandler struct {
	recs   *store.RecommendationStore
	logger *slog.Logger
}

func NewRecommendationHandler(recs *store.RecommendationStore, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{recs: recs, logger: logger}
}

func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.Filter

	if status := r.URL.Query().Get("status"); status != "" {
		s := model.RecommendationStatus(status)
		if !s.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		f.Status = s
	}
	if kindStr := r.URL.Query().Get("type"); kindStr != "" {
		k := model.SessionKind(kindStr)
		if !k.Valid() {
			writeError(w, http.StatusBadRequest, "unknown type filter")
			return
		}
		f.Kind = k
	}

	recs, err := h.recs.List(f)
	if err != nil {
		h.logger.Error("list recommendations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []model.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rec, err := h.recs.GetByID(id)
	if err != nil {
		h.logger.Error("get recommendation", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get recommendation")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recommendation not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
