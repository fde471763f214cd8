package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is returned when a close targets a kind with no
	// open session.
	ErrNoActiveSession = errors.New("no active session")

	// ErrNotFound is returned when an operation references a session that
	// does not exist or has already been closed.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyActive is returned in strict mode when a start would overlap
	// an open session of the same kind.
	ErrAlreadyActive = errors.New("a session of this kind is already active")
)

// ValidationError reports malformed or missing caller input. It never
// indicates a storage problem.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
