package model

import "time"

// RecommendationStatus tracks a coaching job through its lifecycle:
// pending -> processing -> completed | failed. The terminal states are final.
type RecommendationStatus string

const (
	StatusPending    RecommendationStatus = "pending"
	StatusProcessing RecommendationStatus = "processing"
	StatusCompleted  RecommendationStatus = "completed"
	StatusFailed     RecommendationStatus = "failed"
)

// Valid reports whether s is a known job status.
func (s RecommendationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is an end state.
func (s RecommendationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Recommendation is an asynchronous coaching job triggered by closing a
// session with notes. It holds a weak reference to the session that spawned
// it; the session record is never mutated by the job.
type Recommendation struct {
	ID             int64                `json:"id"`
	SessionKind    SessionKind          `json:"session_kind"`
	SessionID      int64                `json:"session_id"`
	Status         RecommendationStatus `json:"status"`
	Recommendation *string              `json:"recommendation,omitempty"`
	ErrorMessage   *string              `json:"error_message,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
}
