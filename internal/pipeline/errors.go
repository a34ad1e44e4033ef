package pipeline

import (
	"fmt"

	"github.com/jonathan/jobpilot/internal/session"
)

// SessionExpiredMessage is shown to users whose session can no longer be finalized.
const SessionExpiredMessage = "Session expired or not found. Please regenerate suggestions."

// SessionExpiredError means the session id is unknown, expired, or was already finalized.
// The remedy is to request new suggestions.
type SessionExpiredError struct {
	SessionID string
}

func (e *SessionExpiredError) Error() string {
	return SessionExpiredMessage
}

func (e *SessionExpiredError) Unwrap() error {
	return session.ErrNotFound
}

// GenerationError wraps a failure of an upstream collaborator: posting fetch, job parsing,
// suggestion generation or cover letter writing. These are not retried.
type GenerationError struct {
	Stage string
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// RenderError wraps a renderer failure during finalize
type RenderError struct {
	Renderer string
	Cause    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s failed: %v", e.Renderer, e.Cause)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// TrackerError wraps a failure to record the application
type TrackerError struct {
	Cause error
}

func (e *TrackerError) Error() string {
	return fmt.Sprintf("failed to record application: %v", e.Cause)
}

func (e *TrackerError) Unwrap() error {
	return e.Cause
}

// InputError reports an invalid request field
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
