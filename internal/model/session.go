package model

import "time"

// SessionKind discriminates the two timed session variants. Fasting sessions
// carry a target duration; sleep sessions do not.
type SessionKind string

const (
	KindFasting SessionKind = "fasting"
	KindSleep   SessionKind = "sleep"
)

// Valid reports whether k is a known session kind.
func (k SessionKind) Valid() bool {
	return k == KindFasting || k == KindSleep
}

// Session is a timed session of either kind. A nil EndTime means the session
// is still open; ActualHours is derived exactly once when the session closes.
type Session struct {
	ID          int64       `json:"id"`
	Kind        SessionKind `json:"kind"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
	TargetHours *float64    `json:"target_hours,omitempty"`
	ActualHours *float64    `json:"actual_hours,omitempty"`
	Completed   bool        `json:"completed"`
	Notes       *string     `json:"notes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.EndTime == nil
}
