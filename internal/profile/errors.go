package profile

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no profile exists for the requested user.
var ErrNotFound = errors.New("profile not found")

// LoadError represents an error during file I/O or JSON parsing
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("profile %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("profile %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// InvalidUserIDError reports a user id that cannot name a profile file
type InvalidUserIDError struct {
	UserID string
}

func (e *InvalidUserIDError) Error() string {
	return fmt.Sprintf("invalid user id %q", e.UserID)
}

// UploadError rejects an uploaded resume before any extraction is attempted
type UploadError struct {
	Filename string
	Reason   string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("resume %q rejected: %s", e.Filename, e.Reason)
}

// ExtractionError means the model could not produce a usable profile from a resume
type ExtractionError struct {
	Reason string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("profile extraction: %s: %v", e.Reason, e.Cause)
	}
	return "profile extraction: " + e.Reason
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
