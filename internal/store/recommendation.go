package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mward/vitalog/internal/model"
)

// ErrInvalidTransition is returned when a status update targets a job that is
// not in the expected prior state. Terminal states never change after the
// first transition into them.
var ErrInvalidTransition = errors.New("recommendation job not in expected state")

// RecommendationStore persists recommendation job records.
type RecommendationStore struct {
	db *sql.DB
}

func NewRecommendationStore(db *sql.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

const recommendationCols = `id, session_kind, session_id, status, recommendation, error_message, created_at, completed_at`

func scanRecommendation(scanner interface{ Scan(...any) error }) (*model.Recommendation, error) {
	var r model.Recommendation
	var text, errMsg sql.NullString
	var completedAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.SessionKind, &r.SessionID, &r.Status, &text, &errMsg, &r.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if text.Valid {
		t := text.String
		r.Recommendation = &t
	}
	if errMsg.Valid {
		m := errMsg.String
		r.ErrorMessage = &m
	}
	if completedAt.Valid {
		c := completedAt.Time
		r.CompletedAt = &c
	}
	return &r, nil
}

// Create inserts a new job in the pending state.
func (s *RecommendationStore) Create(kind model.SessionKind, sessionID int64) (*model.Recommendation, error) {
	result, err := s.db.Exec(
		`INSERT INTO recommendations (session_kind, session_id, status) VALUES (?, ?, ?)`,
		kind, sessionID, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recommendation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID returns the job with the given id, or nil if none exists.
func (s *RecommendationStore) GetByID(id int64) (*model.Recommendation, error) {
	row := s.db.QueryRow(`SELECT `+recommendationCols+` FROM recommendations WHERE id = ?`, id)
	r, err := scanRecommendation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	return r, nil
}

// MarkProcessing moves a pending job into processing.
func (s *RecommendationStore) MarkProcessing(id int64) error {
	return s.transition(
		`UPDATE recommendations SET status = ? WHERE id = ? AND status = ?`,
		model.StatusProcessing, id, model.StatusPending,
	)
}

// MarkCompleted moves a processing job into completed, storing the generated
// text and stamping completed_at.
func (s *RecommendationStore) MarkCompleted(id int64, text string) error {
	return s.transition(
		`UPDATE recommendations SET status = ?, recommendation = ?, completed_at = ? WHERE id = ? AND status = ?`,
		model.StatusCompleted, text, time.Now().UTC(), id, model.StatusProcessing,
	)
}

// MarkFailed moves a processing job into failed, storing the error text and
// stamping completed_at.
func (s *RecommendationStore) MarkFailed(id int64, errText string) error {
	return s.transition(
		`UPDATE recommendations SET status = ?, error_message = ?, completed_at = ? WHERE id = ? AND status = ?`,
		model.StatusFailed, errText, time.Now().UTC(), id, model.StatusProcessing,
	)
}

func (s *RecommendationStore) transition(query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update recommendation status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status model.RecommendationStatus
	Kind   model.SessionKind
}

// List returns jobs matching the filter, newest first.
func (s *RecommendationStore) List(f Filter) ([]model.Recommendation, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Kind != "" {
		conds = append(conds, "session_kind = ?")
		args = append(args, f.Kind)
	}

	query := `SELECT ` + recommendationCols + ` FROM recommendations`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

// ListPending returns pending jobs oldest first, for resuming work left over
// from a previous run.
func (s *RecommendationStore) ListPending() ([]model.Recommendation, error) {
	rows, err := s.db.Query(
		`SELECT `+recommendationCols+` FROM recommendations WHERE status = ? ORDER BY created_at ASC, id ASC`,
		model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending recommendations: %w", err)
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}
