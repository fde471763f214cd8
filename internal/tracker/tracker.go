// Package tracker owns the open/closed lifecycle of timed sessions. A session
// is started open, closed exactly once, and never reopened. Closing a session
// with notes hands a recommendation job to the enqueuer without blocking the
// caller on generation.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mward/vitalog/internal/model"
	"github.com/mward/vitalog/internal/store"
)

// Enqueuer schedules a recommendation job for a closed session and returns
// the job id immediately.
type Enqueuer interface {
	Enqueue(kind model.SessionKind, sessionID int64) (int64, error)
}

// Config controls lifecycle strictness. The original tracker allowed starting
// a session while another of the same kind was open, and let an end time
// before the start time produce negative hours. Lenient mode preserves both
// quirks; strict mode rejects them.
type Config struct {
	Strict bool
}

// Service enforces the session state machine on top of the session store.
type Service struct {
	sessions *store.SessionStore
	enqueuer Enqueuer
	cfg      Config
	logger   *slog.Logger
}

func New(sessions *store.SessionStore, enqueuer Enqueuer, cfg Config, logger *slog.Logger) *Service {
	return &Service{sessions: sessions, enqueuer: enqueuer, cfg: cfg, logger: logger}
}

// CloseResult is what a successful close returns to the caller. The
// recommendation id is nil when no notes were supplied.
type CloseResult struct {
	Session          *model.Session
	ActualHours      float64
	RecommendationID *int64
}

// StartSession opens a new session. Fasting sessions require a positive
// target duration. In strict mode an overlapping open session of the same
// kind is rejected with ErrAlreadyActive.
func (s *Service) StartSession(kind model.SessionKind, startTime time.Time, targetHours *float64) (*model.Session, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Field: "kind", Reason: "must be fasting or sleep"}
	}
	if startTime.IsZero() {
		return nil, &ValidationError{Field: "start_time", Reason: "must be a valid timestamp"}
	}
	if kind == model.KindFasting {
		if targetHours == nil {
			return nil, &ValidationError{Field: "target_hours", Reason: "required for fasting sessions"}
		}
		if *targetHours <= 0 {
			return nil, &ValidationError{Field: "target_hours", Reason: "must be positive"}
		}
	}

	if s.cfg.Strict {
		open, err := s.sessions.GetOpen(kind)
		if err != nil {
			return nil, fmt.Errorf("check open session: %w", err)
		}
		if open != nil {
			return nil, ErrAlreadyActive
		}
	}

	sess, err := s.sessions.Create(kind, startTime, targetHours)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// Current returns the open session for kind, or nil if none. It is read-only
// and safe to call repeatedly (UI timer restore).
func (s *Service) Current(kind model.SessionKind) (*model.Session, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Field: "kind", Reason: "must be fasting or sleep"}
	}
	return s.sessions.GetOpen(kind)
}

// List returns all sessions of the given kind, newest first.
func (s *Service) List(kind model.SessionKind) ([]model.Session, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Field: "kind", Reason: "must be fasting or sleep"}
	}
	return s.sessions.List(kind)
}

// EndSession closes the identified session. It fails with ErrNotFound when
// the id does not exist or the session was already closed; the stored record
// is never touched twice.
func (s *Service) EndSession(kind model.SessionKind, id int64, endTime time.Time, notes *string) (*CloseResult, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Field: "kind", Reason: "must be fasting or sleep"}
	}
	if endTime.IsZero() {
		return nil, &ValidationError{Field: "end_time", Reason: "must be a valid timestamp"}
	}

	sess, err := s.sessions.GetByID(kind, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return s.close(sess, endTime, notes)
}

// EndSessionNow closes the currently open session of the given kind at the
// current time.
func (s *Service) EndSessionNow(kind model.SessionKind, notes *string) (*CloseResult, error) {
	return s.EndSessionAt(kind, time.Now(), notes)
}

// EndSessionAt closes the currently open session of the given kind. When more
// than one session is open (lenient mode allows it) the most recently started
// one is closed.
func (s *Service) EndSessionAt(kind model.SessionKind, endTime time.Time, notes *string) (*CloseResult, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Field: "kind", Reason: "must be fasting or sleep"}
	}
	if endTime.IsZero() {
		return nil, &ValidationError{Field: "end_time", Reason: "must be a valid timestamp"}
	}

	open, err := s.sessions.GetOpen(kind)
	if err != nil {
		return nil, fmt.Errorf("get open session: %w", err)
	}
	if open == nil {
		return nil, ErrNoActiveSession
	}
	return s.close(open, endTime, notes)
}

func (s *Service) close(sess *model.Session, endTime time.Time, notes *string) (*CloseResult, error) {
	if s.cfg.Strict && endTime.Before(sess.StartTime) {
		return nil, &ValidationError{Field: "end_time", Reason: "must not be before start_time"}
	}

	// Negative values flow through unchanged in lenient mode.
	actualHours := endTime.Sub(sess.StartTime).Hours()

	closed, err := s.sessions.Close(sess.Kind, sess.ID, endTime, actualHours, notes)
	if errors.Is(err, store.ErrSessionNotOpen) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}

	result := &CloseResult{Session: closed, ActualHours: actualHours}

	// The session is committed at this point. Recommendation scheduling is
	// best-effort and must never fail the close.
	if s.enqueuer != nil && notes != nil && strings.TrimSpace(*notes) != "" {
		jobID, err := s.enqueuer.Enqueue(closed.Kind, closed.ID)
		if err != nil {
			s.logger.Warn("enqueue recommendation failed", "kind", closed.Kind, "session_id", closed.ID, "error", err)
		} else {
			result.RecommendationID = &jobID
		}
	}

	return result, nil
}
