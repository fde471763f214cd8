package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mward/vitalog/internal/store"
	"github.com/mward/vitalog/internal/websocket"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, hub: hub, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get()
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type settingsRequest struct {
	WeightUnit string   `json:"weight_unit"`
	HeightUnit string   `json:"height_unit"`
	UserHeight *float64 `json:"user_height"`
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.WeightUnit != "lbs" && req.WeightUnit != "kg" {
		writeError(w, http.StatusBadRequest, "weight_unit must be lbs or kg")
		return
	}
	if req.HeightUnit != "inches" && req.HeightUnit != "cm" {
		writeError(w, http.StatusBadRequest, "height_unit must be inches or cm")
		return
	}
	if req.UserHeight != nil && *req.UserHeight <= 0 {
		writeError(w, http.StatusBadRequest, "user_height must be positive")
		return
	}

	settings, err := h.settings.Update(req.WeightUnit, req.HeightUnit, req.UserHeight)
	if err != nil {
		h.logger.Error("update settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewEvent("settings", "updated", 0, nil))
	}
	writeJSON(w, http.StatusOK, settings)
}
