package captions

import "fmt"

// Error represents a failure while caching or describing an image.
type Error struct {
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("captioning failed for %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("captioning failed for %s: %s", e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
