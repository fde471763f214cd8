package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mward/vitalog/internal/model"
	"github.com/mward/vitalog/internal/tracker"
	"github.com/mward/vitalog/internal/websocket"
)

// SessionHandler exposes the session lifecycle for one kind. The server
// registers one instance per kind under the matching route prefix.
type SessionHandler struct {
	kind    model.SessionKind
	tracker *tracker.Service
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewSessionHandler(kind model.SessionKind, svc *tracker.Service, hub *websocket.Hub, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{kind: kind, tracker: svc, hub: hub, logger: logger}
}

func (h *SessionHandler) broadcast(action string, id int64) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewEvent(string(h.kind)+"_session", action, id, nil))
	}
}

type startSessionRequest struct {
	StartTime   string   `json:"start_time"`
	TargetHours *float64 `json:"target_hours"`
}

type endSessionRequest struct {
	EndTime string  `json:"end_time"`
	Notes   *string `json:"notes"`
}

type endSessionResponse struct {
	Success          bool      `json:"success"`
	EndTime          time.Time `json:"end_time"`
	ActualHours      float64   `json:"actual_hours"`
	RecommendationID *int64    `json:"recommendation_id"`
	Message          string    `json:"message"`
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	startTime := time.Now()
	if req.StartTime != "" {
		var err error
		startTime, err = time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_time must be an RFC 3339 timestamp")
			return
		}
	}

	sess, err := h.tracker.StartSession(h.kind, startTime, req.TargetHours)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.broadcast("started", sess.ID)
	writeJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	req, endTime, ok := h.decodeEnd(w, r)
	if !ok {
		return
	}

	result, err := h.tracker.EndSession(h.kind, id, endTime, req.Notes)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.respondClosed(w, result)
}

// EndCurrent closes the open session of this kind without the caller naming
// an id, matching the "stop the running timer" button.
func (h *SessionHandler) EndCurrent(w http.ResponseWriter, r *http.Request) {
	req, endTime, ok := h.decodeEnd(w, r)
	if !ok {
		return
	}

	result, err := h.tracker.EndSessionAt(h.kind, endTime, req.Notes)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.respondClosed(w, result)
}

func (h *SessionHandler) decodeEnd(w http.ResponseWriter, r *http.Request) (endSessionRequest, time.Time, bool) {
	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return req, time.Time{}, false
	}

	endTime := time.Now()
	if req.EndTime != "" {
		var err error
		endTime, err = time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_time must be an RFC 3339 timestamp")
			return req, time.Time{}, false
		}
	}
	return req, endTime, true
}

func (h *SessionHandler) respondClosed(w http.ResponseWriter, result *tracker.CloseResult) {
	h.broadcast("ended", result.Session.ID)

	msg := "Session completed."
	if result.RecommendationID != nil {
		msg = "Session completed. AI recommendation queued."
	}

	writeJSON(w, http.StatusOK, endSessionResponse{
		Success:          true,
		EndTime:          *result.Session.EndTime,
		ActualHours:      result.ActualHours,
		RecommendationID: result.RecommendationID,
		Message:          msg,
	})
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	sess, err := h.tracker.Current(h.kind)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}
	// nil encodes as JSON null, which the UI treats as "no timer running".
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.tracker.List(h.kind)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *SessionHandler) writeTrackerError(w http.ResponseWriter, err error) {
	switch {
	case tracker.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tracker.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, "no active session")
	case errors.Is(err, tracker.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, tracker.ErrAlreadyActive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("session operation failed", "kind", h.kind, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
