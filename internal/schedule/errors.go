package schedule

import "errors"

var (
	// ErrNotFound is returned when the requested event, user or audience does not exist
	ErrNotFound = errors.New("schedule: not found")
	// ErrForbidden is returned when a non-admin calls an admin-only operation
	ErrForbidden = errors.New("schedule: admin only")
	// ErrNoGroup is returned when a student asks for a timetable before joining a group
	ErrNoGroup = errors.New("schedule: group not set")
)

// ValidationError reports rejected input. Message is meant to be shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
