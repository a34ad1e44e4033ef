// Package rendering writes finalized resumes to LaTeX, PDF and JSON files.
package rendering

import (
	"errors"
	"fmt"
)

// ErrNilDocument is returned when a renderer is handed no resume.
var ErrNilDocument = errors.New("rendering: no resume to render")

// TemplatePhase says how far a template got before failing.
type TemplatePhase string

const (
	PhaseLoad    TemplatePhase = "load"
	PhaseParse   TemplatePhase = "parse"
	PhaseExecute TemplatePhase = "execute"
)

// TemplateError reports a resume template that could not be used. Path is empty for the
// embedded template.
type TemplateError struct {
	Path  string
	Phase TemplatePhase
	Cause error
}

func (e *TemplateError) Error() string {
	name := e.Path
	if name == "" {
		name = "built-in"
	}
	return fmt.Sprintf("resume template %s: %s: %v", name, e.Phase, e.Cause)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// OutputError reports an output file of the given format that could not be produced.
type OutputError struct {
	Format string
	Path   string
	Cause  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("write %s output %s: %v", e.Format, e.Path, e.Cause)
}

func (e *OutputError) Unwrap() error {
	return e.Cause
}
