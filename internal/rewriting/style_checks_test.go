package rewriting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckBullet(t *testing.T) {
	tests := []struct {
		name string
		text string
		want StyleReport
	}{
		{
			name: "strong and quantified",
			text: "Built a Kafka ingestion service handling 2M events/day",
			want: StyleReport{StrongVerb: true, Quantified: true, FitsLine: true},
		},
		{
			name: "past tense heuristic",
			text: "Containerized 12 services with Docker",
			want: StyleReport{StrongVerb: true, Quantified: true, FitsLine: true},
		},
		{
			name: "percent only",
			text: "Reduced latency by a third%",
			want: StyleReport{StrongVerb: true, Quantified: true, FitsLine: true},
		},
		{
			name: "weak opener",
			text: "Responsible for data pipelines",
			want: StyleReport{FitsLine: true},
		},
		{
			name: "too long",
			text: "Led " + strings.Repeat("x", MaxBulletChars),
			want: StyleReport{StrongVerb: true},
		},
		{name: "empty", text: "   ", want: StyleReport{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckBullet(tt.text))
		})
	}
}

func TestStyleReport_Issues(t *testing.T) {
	assert.Empty(t, StyleReport{StrongVerb: true, Quantified: true, FitsLine: true}.Issues())
	assert.True(t, StyleReport{StrongVerb: true, Quantified: true, FitsLine: true}.OK())
	assert.Equal(t, []string{"weak opening verb", "no metric", "too long"}, StyleReport{}.Issues())
}
