package model

import "time"

type WeightEntry struct {
	ID        int64     `json:"id"`
	Weight    float64   `json:"weight"`
	Date      string    `json:"date"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
