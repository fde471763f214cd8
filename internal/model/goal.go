package model

import "time"

// Goal is a weight target. StartWeight anchors progress arithmetic and may be
// absent for goals created before a first weigh-in.
type Goal struct {
	ID           int64     `json:"id"`
	TargetWeight *float64  `json:"target_weight"`
	StartWeight  *float64  `json:"start_weight,omitempty"`
	TargetDate   *string   `json:"target_date,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SleepGoal holds the target sleep schedule. Bedtime and wake time are local
// clock times in HH:MM form.
type SleepGoal struct {
	ID             int64     `json:"id"`
	TargetHours    float64   `json:"target_hours"`
	TargetBedtime  string    `json:"target_bedtime"`
	TargetWakeTime string    `json:"target_wake_time"`
	CreatedAt      time.Time `json:"created_at"`
}
