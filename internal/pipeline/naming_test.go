package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Acme Corp", want: "Acme Corp"},
		{name: "punctuation", input: "AT&T / Labs", want: "AT_T _ Labs"},
		{name: "allowed symbols", input: "v1.2_beta-3", want: "v1.2_beta-3"},
		{name: "path traversal", input: "../../etc/passwd", want: ".._.._etc_passwd"},
		{name: "unicode letters kept", input: "Zürich", want: "Zürich"},
		{name: "trimmed", input: "  Acme  ", want: "Acme"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("a", 80))
	assert.Len(t, got, 50)
}

func TestBaseName(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 5, 7, 0, time.UTC)

	assert.Equal(t, "Sam_Doe_Acme_Corp_Senior_Engineer_20250301_090507", BaseName("Sam Doe", "Acme Corp", "Senior Engineer", at))
	assert.Equal(t, "resume_company_role_20250301_090507", BaseName("", "", "", at))
	assert.Equal(t, "Sam_AT_T_SRE__Platform_20250301_090507", BaseName("Sam", "AT&T", "SRE (Platform", at))
}

func TestJobInput_Validate(t *testing.T) {
	assert.NoError(t, JobInput{URL: "https://example.com"}.Validate())
	assert.NoError(t, JobInput{Text: "We are hiring"}.Validate())
	assert.Error(t, JobInput{}.Validate())
	assert.Error(t, JobInput{URL: "   "}.Validate())
	assert.Error(t, JobInput{URL: "https://example.com", Text: "text"}.Validate())
}
