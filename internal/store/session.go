package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mward/vitalog/internal/model"
)

// ErrSessionNotOpen is returned by Close when the target row does not exist
// or has already been closed. The UPDATE is guarded by end_time IS NULL, so
// concurrent close attempts serialize in the database: first writer wins,
// later writers see zero rows affected.
var ErrSessionNotOpen = errors.New("session not found or already closed")

// SessionStore persists timed sessions. Fasting and sleep sessions live in
// separate tables with a shared shape; the kind selects the table.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func sessionTable(kind model.SessionKind) string {
	if kind == model.KindFasting {
		return "fasting_sessions"
	}
	return "sleep_sessions"
}

func sessionCols(kind model.SessionKind) string {
	if kind == model.KindFasting {
		return `id, start_time, end_time, target_hours, actual_hours, completed, notes, created_at`
	}
	return `id, start_time, end_time, actual_hours, completed, notes, created_at`
}

func scanSession(kind model.SessionKind, scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	var endTime sql.NullTime
	var actualHours sql.NullFloat64
	var notes sql.NullString

	var err error
	if kind == model.KindFasting {
		var targetHours float64
		err = scanner.Scan(&s.ID, &s.StartTime, &endTime, &targetHours, &actualHours, &s.Completed, &notes, &s.CreatedAt)
		s.TargetHours = &targetHours
	} else {
		err = scanner.Scan(&s.ID, &s.StartTime, &endTime, &actualHours, &s.Completed, &notes, &s.CreatedAt)
	}
	if err != nil {
		return nil, err
	}

	s.Kind = kind
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	if actualHours.Valid {
		h := actualHours.Float64
		s.ActualHours = &h
	}
	if notes.Valid {
		n := notes.String
		s.Notes = &n
	}
	return &s, nil
}

// Create inserts a new open session. targetHours is required for fasting
// sessions and ignored for sleep sessions.
func (s *SessionStore) Create(kind model.SessionKind, startTime time.Time, targetHours *float64) (*model.Session, error) {
	var result sql.Result
	var err error
	if kind == model.KindFasting {
		var target float64
		if targetHours != nil {
			target = *targetHours
		}
		result, err = s.db.Exec(
			`INSERT INTO fasting_sessions (start_time, target_hours) VALUES (?, ?)`,
			startTime.UTC(), target,
		)
	} else {
		result, err = s.db.Exec(
			`INSERT INTO sleep_sessions (start_time) VALUES (?)`,
			startTime.UTC(),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(kind, id)
}

// GetByID returns the session with the given id, or nil if none exists.
func (s *SessionStore) GetByID(kind model.SessionKind, id int64) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionCols(kind)+` FROM `+sessionTable(kind)+` WHERE id = ?`, id,
	)
	sess, err := scanSession(kind, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// GetOpen returns the most recently started open session of the given kind,
// or nil if none is open.
func (s *SessionStore) GetOpen(kind model.SessionKind) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT ` + sessionCols(kind) + ` FROM ` + sessionTable(kind) +
			` WHERE end_time IS NULL ORDER BY start_time DESC LIMIT 1`,
	)
	sess, err := scanSession(kind, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open session: %w", err)
	}
	return sess, nil
}

// Close writes end_time, actual_hours, completed and notes in one atomic
// update. It returns ErrSessionNotOpen if the session does not exist or was
// already closed, leaving the stored record untouched.
func (s *SessionStore) Close(kind model.SessionKind, id int64, endTime time.Time, actualHours float64, notes *string) (*model.Session, error) {
	var n sql.NullString
	if notes != nil {
		n = sql.NullString{String: *notes, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE `+sessionTable(kind)+` SET end_time = ?, actual_hours = ?, completed = TRUE, notes = ?
		 WHERE id = ? AND end_time IS NULL`,
		endTime.UTC(), actualHours, n, id,
	)
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrSessionNotOpen
	}
	return s.GetByID(kind, id)
}

// List returns all sessions of the given kind, most recently started first.
func (s *SessionStore) List(kind model.SessionKind) ([]model.Session, error) {
	rows, err := s.db.Query(
		`SELECT ` + sessionCols(kind) + ` FROM ` + sessionTable(kind) + ` ORDER BY start_time DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// Delete removes a historical session record.
func (s *SessionStore) Delete(kind model.SessionKind, id int64) error {
	_, err := s.db.Exec(`DELETE FROM `+sessionTable(kind)+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
