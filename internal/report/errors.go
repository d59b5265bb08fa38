package report

import "fmt"

// Error represents a failure while writing a run report artifact.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("report error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("report error: %s", e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}
