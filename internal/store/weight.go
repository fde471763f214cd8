package store

import (
	"database/sql"
	"fmt"

	"github.com/mward/vitalog/internal/model"
)

type WeightStore struct {
	db *sql.DB
}

func NewWeightStore(db *sql.DB) *WeightStore {
	return &WeightStore{db: db}
}

const weightCols = `id, weight, date, notes, created_at`

func scanWeightEntry(scanner interface{ Scan(...any) error }) (*model.WeightEntry, error) {
	var e model.WeightEntry
	var notes sql.NullString

	err := scanner.Scan(&e.ID, &e.Weight, &e.Date, &notes, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		n := notes.String
		e.Notes = &n
	}
	return &e, nil
}

func (s *WeightStore) Create(weight float64, date string, notes *string) (*model.WeightEntry, error) {
	var n sql.NullString
	if notes != nil {
		n = sql.NullString{String: *notes, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO weight_entries (weight, date, notes) VALUES (?, ?, ?)`,
		weight, date, n,
	)
	if err != nil {
		return nil, fmt.Errorf("insert weight entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WeightStore) GetByID(id int64) (*model.WeightEntry, error) {
	row := s.db.QueryRow(`SELECT `+weightCols+` FROM weight_entries WHERE id = ?`, id)
	e, err := scanWeightEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weight entry: %w", err)
	}
	return e, nil
}

func (s *WeightStore) List() ([]model.WeightEntry, error) {
	rows, err := s.db.Query(`SELECT ` + weightCols + ` FROM weight_entries ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list weight entries: %w", err)
	}
	defer rows.Close()

	var entries []model.WeightEntry
	for rows.Next() {
		e, err := scanWeightEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weight entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Latest returns the most recent entry by date, or nil if there are none.
func (s *WeightStore) Latest() (*model.WeightEntry, error) {
	row := s.db.QueryRow(`SELECT ` + weightCols + ` FROM weight_entries ORDER BY date DESC, id DESC LIMIT 1`)
	e, err := scanWeightEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest weight entry: %w", err)
	}
	return e, nil
}

func (s *WeightStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM weight_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete weight entry: %w", err)
	}
	return nil
}
