package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mward/vitalog/internal/model"
)

// SettingsStore persists the single user preferences row. Get always returns
// a usable record; the migration seeds the defaults.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get() (*model.Settings, error) {
	row := s.db.QueryRow(`SELECT weight_unit, height_unit, user_height, updated_at FROM settings WHERE id = 1`)

	var st model.Settings
	var height sql.NullFloat64
	err := row.Scan(&st.WeightUnit, &st.HeightUnit, &height, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return &model.Settings{WeightUnit: "lbs", HeightUnit: "inches"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if height.Valid {
		h := height.Float64
		st.UserHeight = &h
	}
	return &st, nil
}

func (s *SettingsStore) Update(weightUnit, heightUnit string, userHeight *float64) (*model.Settings, error) {
	var h sql.NullFloat64
	if userHeight != nil {
		h = sql.NullFloat64{Float64: *userHeight, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO settings (id, weight_unit, height_unit, user_height, updated_at) VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET weight_unit = excluded.weight_unit, height_unit = excluded.height_unit,
		 user_height = excluded.user_height, updated_at = excluded.updated_at`,
		weightUnit, heightUnit, h, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return s.Get()
}
