package synthesis

import "fmt"

// Error represents a failure to obtain a usable fix candidate for an artifact.
type Error struct {
	Artifact string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Artifact != "" {
		if e.Cause != nil {
			return fmt.Sprintf("synthesis failed for %s: %s: %v", e.Artifact, e.Message, e.Cause)
		}
		return fmt.Sprintf("synthesis failed for %s: %s", e.Artifact, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("synthesis failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("synthesis failed: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
