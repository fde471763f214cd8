package model

import "time"

// Settings is the single-row user preference record.
type Settings struct {
	WeightUnit string    `json:"weight_unit"`
	HeightUnit string    `json:"height_unit"`
	UserHeight *float64  `json:"user_height,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
