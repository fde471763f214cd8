package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/mward/vitalog/internal/store"
	"github.com/mward/vitalog/internal/websocket"
)

var clockTimeRegexp = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type GoalHandler struct {
	goals  *store.GoalStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewGoalHandler(gs *store.GoalStore, hub *websocket.Hub, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{goals: gs, hub: hub, logger: logger}
}

func (h *GoalHandler) broadcast(entity string, id int64) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewEvent(entity, "created", id, nil))
	}
}

type goalRequest struct {
	TargetWeight float64  `json:"target_weight"`
	StartWeight  *float64 `json:"start_weight"`
	TargetDate   *string  `json:"target_date"`
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.TargetWeight <= 0 {
		writeError(w, http.StatusBadRequest, "target_weight must be positive")
		return
	}
	if req.TargetDate != nil {
		if _, err := time.Parse("2006-01-02", *req.TargetDate); err != nil {
			writeError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
			return
		}
	}

	goal, err := h.goals.Create(req.TargetWeight, req.StartWeight, req.TargetDate)
	if err != nil {
		h.logger.Error("create goal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save goal")
		return
	}

	h.broadcast("goal", goal.ID)
	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) Latest(w http.ResponseWriter, r *http.Request) {
	goal, err := h.goals.Latest()
	if err != nil {
		h.logger.Error("latest goal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get goal")
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

type sleepGoalRequest struct {
	TargetHours    float64 `json:"target_hours"`
	TargetBedtime  string  `json:"target_bedtime"`
	TargetWakeTime string  `json:"target_wake_time"`
}

func (h *GoalHandler) CreateSleepGoal(w http.ResponseWriter, r *http.Request) {
	var req sleepGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.TargetHours <= 0 {
		writeError(w, http.StatusBadRequest, "target_hours must be positive")
		return
	}
	if !clockTimeRegexp.MatchString(req.TargetBedtime) {
		writeError(w, http.StatusBadRequest, "target_bedtime must be HH:MM")
		return
	}
	if !clockTimeRegexp.MatchString(req.TargetWakeTime) {
		writeError(w, http.StatusBadRequest, "target_wake_time must be HH:MM")
		return
	}

	goal, err := h.goals.CreateSleepGoal(req.TargetHours, req.TargetBedtime, req.TargetWakeTime)
	if err != nil {
		h.logger.Error("create sleep goal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save sleep goal")
		return
	}

	h.broadcast("sleep_goal", goal.ID)
	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) LatestSleepGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.goals.LatestSleepGoal()
	if err != nil {
		h.logger.Error("latest sleep goal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get sleep goal")
		return
	}
	writeJSON(w, http.StatusOK, goal)
}
