package store

import (
	"database/sql"
	"fmt"

	"github.com/mward/vitalog/internal/model"
)

type GoalStore struct {
	db *sql.DB
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db}
}

const goalCols = `id, target_weight, start_weight, target_date, created_at`

func scanGoal(scanner interface{ Scan(...any) error }) (*model.Goal, error) {
	var g model.Goal
	var targetWeight, startWeight sql.NullFloat64
	var targetDate sql.NullString

	err := scanner.Scan(&g.ID, &targetWeight, &startWeight, &targetDate, &g.CreatedAt)
	if err != nil {
		return nil, err
	}

	if targetWeight.Valid {
		w := targetWeight.Float64
		g.TargetWeight = &w
	}
	if startWeight.Valid {
		w := startWeight.Float64
		g.StartWeight = &w
	}
	if targetDate.Valid {
		d := targetDate.String
		g.TargetDate = &d
	}
	return &g, nil
}

func (s *GoalStore) Create(targetWeight float64, startWeight *float64, targetDate *string) (*model.Goal, error) {
	var sw sql.NullFloat64
	if startWeight != nil {
		sw = sql.NullFloat64{Float64: *startWeight, Valid: true}
	}
	var td sql.NullString
	if targetDate != nil {
		td = sql.NullString{String: *targetDate, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO goals (target_weight, start_weight, target_date) VALUES (?, ?, ?)`,
		targetWeight, sw, td,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+goalCols+` FROM goals WHERE id = ?`, id)
	return scanGoal(row)
}

// Latest returns the most recently created goal, or nil if none exists.
func (s *GoalStore) Latest() (*model.Goal, error) {
	row := s.db.QueryRow(`SELECT ` + goalCols + ` FROM goals ORDER BY created_at DESC, id DESC LIMIT 1`)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest goal: %w", err)
	}
	return g, nil
}

// --- Sleep goal methods ---

const sleepGoalCols = `id, target_hours, target_bedtime, target_wake_time, created_at`

func scanSleepGoal(scanner interface{ Scan(...any) error }) (*model.SleepGoal, error) {
	var g model.SleepGoal
	err := scanner.Scan(&g.ID, &g.TargetHours, &g.TargetBedtime, &g.TargetWakeTime, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GoalStore) CreateSleepGoal(targetHours float64, bedtime, wakeTime string) (*model.SleepGoal, error) {
	result, err := s.db.Exec(
		`INSERT INTO sleep_goals (target_hours, target_bedtime, target_wake_time) VALUES (?, ?, ?)`,
		targetHours, bedtime, wakeTime,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sleep goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+sleepGoalCols+` FROM sleep_goals WHERE id = ?`, id)
	return scanSleepGoal(row)
}

// LatestSleepGoal returns the most recently created sleep goal, or nil.
func (s *GoalStore) LatestSleepGoal() (*model.SleepGoal, error) {
	row := s.db.QueryRow(`SELECT ` + sleepGoalCols + ` FROM sleep_goals ORDER BY created_at DESC, id DESC LIMIT 1`)
	g, err := scanSleepGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sleep goal: %w", err)
	}
	return g, nil
}
