package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSkillName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"golang", "Go"},
		{"  Golang ", "Go"},
		{"K8S", "Kubernetes"},
		{"nodejs", "Node.js"},
		{"SQL", "SQL"},
		{"Apache   Spark", "Apache Spark"},
		{"python", "python"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSkillName(tt.input))
		})
	}
}

func TestNormalizeSkills(t *testing.T) {
	got := NormalizeSkills([]string{"Python", "golang", " ", "Go", "python", "AWS", "aws"})
	assert.Equal(t, []string{"Python", "Go", "AWS"}, got)

	assert.Nil(t, NormalizeSkills(nil))
	assert.Equal(t, []string{}, NormalizeSkills([]string{"  "}))
}

func TestNormalizeLines(t *testing.T) {
	assert.Equal(t, []string{"Own the pipeline", "Mentor"}, NormalizeLines([]string{" Own the pipeline ", "", "Mentor"}))
	assert.Nil(t, NormalizeLines(nil))
}

func TestNormalizeEnum(t *testing.T) {
	remote := []string{"remote", "hybrid", "onsite"}
	assert.Equal(t, "remote", normalizeEnum("Remote", remote...))
	assert.Equal(t, "hybrid", normalizeEnum("Hybrid (3 days)", remote...))
	assert.Equal(t, "", normalizeEnum("unclear", remote...))
	assert.Equal(t, "", normalizeEnum("", remote...))
}
