package parsing

import (
	"errors"
	"strings"
)

// ErrNoClient is returned by a Parser built without an LLM client.
var ErrNoClient = errors.New("parsing: no LLM client configured")

// Step names where posting extraction stopped.
type Step string

const (
	StepModel  Step = "model"
	StepDecode Step = "decode"
	StepCheck  Step = "check"
)

// ExtractError reports a posting that could not be turned into a ParsedJob. Field is set
// when a decoded posting lacks required data.
type ExtractError struct {
	Step   Step
	Field  string
	Detail string
	Cause  error
}

func (e *ExtractError) Error() string {
	var b strings.Builder
	b.WriteString("extract posting (")
	b.WriteString(string(e.Step))
	b.WriteString(")")
	if e.Field != "" {
		b.WriteString(" " + e.Field)
	}
	b.WriteString(": " + e.Detail)
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *ExtractError) Unwrap() error {
	return e.Cause
}
