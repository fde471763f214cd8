package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mward/vitalog/internal/model"
	"github.com/mward/vitalog/internal/store"
	"github.com/mward/vitalog/internal/websocket"
)

type WeightHandler struct {
	weights *store.WeightStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewWeightHandler(ws *store.WeightStore, hub *websocket.Hub, logger *slog.Logger) *WeightHandler {
	return &WeightHandler{weights: ws, hub: hub, logger: logger}
}

func (h *WeightHandler) broadcast(action string, id int64) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewEvent("weight", action, id, nil))
	}
}

type weightRequest struct {
	Weight float64 `json:"weight"`
	Date   string  `json:"date"`
	Notes  *string `json:"notes"`
}

func (h *WeightHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Weight <= 0 {
		writeError(w, http.StatusBadRequest, "weight must be positive")
		return
	}
	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	entry, err := h.weights.Create(req.Weight, req.Date, req.Notes)
	if err != nil {
		h.logger.Error("create weight entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save weight entry")
		return
	}

	h.broadcast("created", entry.ID)
	writeJSON(w, http.StatusCreated, entry)
}

func (h *WeightHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.weights.List()
	if err != nil {
		h.logger.Error("list weight entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list weight entries")
		return
	}
	if entries == nil {
		entries = []model.WeightEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *WeightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.weights.GetByID(id)
	if err != nil {
		h.logger.Error("get weight entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get weight entry")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "weight entry not found")
		return
	}

	if err := h.weights.Delete(id); err != nil {
		h.logger.Error("delete weight entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete weight entry")
		return
	}

	h.broadcast("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
