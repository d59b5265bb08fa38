package webpage

import "fmt"

// Error represents a failure while generating the accessible page.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("accessible page generation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("accessible page generation failed: %s", e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}
