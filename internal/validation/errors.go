// Package validation compiles LaTeX resumes and checks the resulting PDF against page limits.
package validation

import (
	"fmt"
	"strings"
)

// ToolMissingError means none of the external programs a step can use is installed.
type ToolMissingError struct {
	Tools []string
	Hint  string
}

func (e *ToolMissingError) Error() string {
	msg := strings.Join(e.Tools, " or ") + " not found in PATH"
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

// CompileError describes a pdflatex run that did not end cleanly. PDFPath is set when a PDF
// was written anyway; Log holds the combined pdflatex output.
type CompileError struct {
	TexPath string
	PDFPath string
	Reason  string
	Log     string
	Cause   error
}

func (e *CompileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compile %s: %s: %v", e.TexPath, e.Reason, e.Cause)
	}
	return fmt.Sprintf("compile %s: %s", e.TexPath, e.Reason)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Partial reports whether the run still produced a PDF.
func (e *CompileError) Partial() bool {
	return e.PDFPath != ""
}
