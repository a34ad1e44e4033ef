package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{MasterProfile, ParsedJob, Suggestions}, Names())
}

func TestAllSchemasCompile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			_, err := load(name)
			require.NoError(t, err)
		})
	}
}

func TestValidateBytes_Suggestions(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid",
			doc: `{"experiences":[{"id":"e1","source":"work_experience","selected":true,"relevance_score":8,
				"bullets":[{"original":"Built X","suggested":"Built X with Go","action":"revise","keywords_added":["Go"]}]}],
				"projects":[],"skills":{"languages":["Go","SQL"]},"keyword_suggestions":[]}`,
		},
		{
			name: "weak types tolerated",
			doc:  `{"experiences":[{"id":"e1","selected":"true","relevance_score":"7","bullets":[]}]}`,
		},
		{name: "missing experiences", doc: `{"projects":[]}`, wantErr: true},
		{name: "bullet without original", doc: `{"experiences":[{"id":"e1","bullets":[{"suggested":"x"}]}]}`, wantErr: true},
		{name: "empty id", doc: `{"experiences":[{"id":"","bullets":[]}]}`, wantErr: true},
		{name: "skills not lists", doc: `{"experiences":[],"skills":{"languages":"Go"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBytes(Suggestions, []byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.NotEmpty(t, verr.Errors)
			assert.Contains(t, verr.Error(), "suggestions validation failed")
		})
	}
}

func TestValidateBytes_NotJSON(t *testing.T) {
	err := ValidateBytes(ParsedJob, []byte("not json"))
	var lerr *SchemaLoadError
	require.True(t, errors.As(err, &lerr))
}

func TestValidateBytes_UnknownSchema(t *testing.T) {
	err := ValidateBytes("nope", []byte(`{}`))
	var lerr *SchemaLoadError
	require.True(t, errors.As(err, &lerr))
	assert.Contains(t, err.Error(), "unknown schema")
}

func TestValidateValue_MasterProfile(t *testing.T) {
	valid := map[string]any{
		"personal":        map[string]any{"name": "Sam Doe", "email": "sam@example.com"},
		"work_experience": []any{map[string]any{"id": "w1", "title": "Engineer", "bullets": []any{"Did things"}}},
	}
	assert.NoError(t, ValidateValue(MasterProfile, valid))

	invalid := map[string]any{"personal": map[string]any{"name": ""}}
	err := ValidateValue(MasterProfile, invalid)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.GreaterOrEqual(t, len(verr.Errors), 2)
}

func TestValidateBytes_ParsedJob(t *testing.T) {
	assert.NoError(t, ValidateBytes(ParsedJob, []byte(`{"title":"SRE","company":"Acme","keywords":["go"],"years_experience":5}`)))
	assert.Error(t, ValidateBytes(ParsedJob, []byte(`{"company":"Acme"}`)))
	assert.Error(t, ValidateBytes(ParsedJob, []byte(`{"title":"SRE","keywords":"go"}`)))
}
