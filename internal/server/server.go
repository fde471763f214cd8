package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mward/vitalog/internal/handler"
	"github.com/mward/vitalog/internal/middleware"
	"github.com/mward/vitalog/internal/model"
	"github.com/mward/vitalog/internal/recommend"
	"github.com/mward/vitalog/internal/stats"
	"github.com/mward/vitalog/internal/store"
	"github.com/mward/vitalog/internal/tracker"
	ws "github.com/mward/vitalog/internal/websocket"
)

// Config holds server-level behavior knobs.
type Config struct {
	// StrictSessions rejects overlapping opens and end-before-start closes
	// instead of preserving the legacy lenient behavior.
	StrictSessions bool
	// GenerationTimeout bounds each AI generation call.
	GenerationTimeout time.Duration
}

type Server struct {
	db               *sql.DB
	hub              *ws.Hub
	worker           *recommend.Worker
	fastingH         *handler.SessionHandler
	sleepH           *handler.SessionHandler
	recommendationH  *handler.RecommendationHandler
	weightH          *handler.WeightHandler
	goalH            *handler.GoalHandler
	settingsH        *handler.SettingsHandler
	statsH           *handler.StatsHandler
	logger           *slog.Logger
}

func New(db *sql.DB, gen recommend.Generator, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	sessionStore := store.NewSessionStore(db)
	recStore := store.NewRecommendationStore(db)
	weightStore := store.NewWeightStore(db)
	goalStore := store.NewGoalStore(db)
	settingsStore := store.NewSettingsStore(db)

	statsSvc := stats.New(weightStore, goalStore, settingsStore)

	worker := recommend.NewWorker(recStore, sessionStore, statsSvc, gen, cfg.GenerationTimeout, func(job model.Recommendation) {
		hub.Broadcast(ws.NewEvent("recommendation", string(job.Status), job.ID, map[string]any{
			"session_kind": job.SessionKind,
			"session_id":   job.SessionID,
		}))
	}, logger.With("component", "recommend"))

	trackerSvc := tracker.New(sessionStore, worker, tracker.Config{Strict: cfg.StrictSessions}, logger.With("component", "tracker"))

	return &Server{
		db:              db,
		hub:             hub,
		worker:          worker,
		fastingH:        handler.NewSessionHandler(model.KindFasting, trackerSvc, hub, logger.With("component", "fasting")),
		sleepH:          handler.NewSessionHandler(model.KindSleep, trackerSvc, hub, logger.With("component", "sleep")),
		recommendationH: handler.NewRecommendationHandler(recStore, logger.With("component", "recommendation")),
		weightH:         handler.NewWeightHandler(weightStore, hub, logger.With("component", "weight")),
		goalH:           handler.NewGoalHandler(goalStore, hub, logger.With("component", "goal")),
		settingsH:       handler.NewSettingsHandler(settingsStore, hub, logger.With("component", "settings")),
		statsH:          handler.NewStatsHandler(statsSvc, logger.With("component", "stats")),
		logger:          logger,
	}
}

// Worker returns the recommendation worker so main can start and stop it.
func (s *Server) Worker() *recommend.Worker {
	return s.worker
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Weight entries
	mux.HandleFunc("GET /api/weight", s.weightH.List)
	mux.HandleFunc("POST /api/weight", s.weightH.Create)
	mux.HandleFunc("DELETE /api/weight/{id}", s.weightH.Delete)

	// Fasting sessions
	mux.HandleFunc("GET /api/fasting", s.fastingH.List)
	mux.HandleFunc("POST /api/fasting/start", s.fastingH.Start)
	mux.HandleFunc("GET /api/fasting/current", s.fastingH.Current)
	mux.HandleFunc("POST /api/fasting/end", s.fastingH.EndCurrent)
	mux.HandleFunc("PATCH /api/fasting/{id}/end", s.fastingH.End)

	// Sleep sessions
	mux.HandleFunc("GET /api/sleep", s.sleepH.List)
	mux.HandleFunc("POST /api/sleep/start", s.sleepH.Start)
	mux.HandleFunc("GET /api/sleep/current", s.sleepH.Current)
	mux.HandleFunc("POST /api/sleep/end", s.sleepH.EndCurrent)
	mux.HandleFunc("PATCH /api/sleep/{id}/end", s.sleepH.End)

	// Goals
	mux.HandleFunc("GET /api/goals", s.goalH.Latest)
	mux.HandleFunc("POST /api/goals", s.goalH.Create)
	mux.HandleFunc("GET /api/sleep-goals", s.goalH.LatestSleepGoal)
	mux.HandleFunc("POST /api/sleep-goals", s.goalH.CreateSleepGoal)

	// Settings and stats
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("POST /api/settings", s.settingsH.Update)
	mux.HandleFunc("GET /api/stats", s.statsH.Get)

	// Recommendation jobs
	mux.HandleFunc("GET /api/recommendations", s.recommendationH.List)
	mux.HandleFunc("GET /api/recommendations/{id}", s.recommendationH.Get)

	// Live updates
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
