package audit

import "fmt"

// Error represents an error during an accessibility audit round trip.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("audit error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("audit error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
