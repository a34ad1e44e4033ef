package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/types"
)

func TestPrintJob(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintJob(&types.ParsedJob{
		Title:           "Senior Engineer",
		Company:         "Acme Corp",
		Seniority:       "senior",
		RequiredSkills:  []string{"Go", "Kubernetes", "SQL", "AWS", "Kafka", "Terraform"},
		PreferredSkills: []string{"Rust"},
		TechStack:       []string{"Go", "Postgres"},
	})
	output := buf.String()

	assert.Contains(t, output, "PARSED JOB")
	assert.Contains(t, output, "Acme Corp")
	assert.Contains(t, output, "Senior Engineer")
	assert.Contains(t, output, "• Kafka")
	assert.NotContains(t, output, "Terraform")
	assert.Contains(t, output, "... and 1 more")
	assert.Contains(t, output, "Rust")
	assert.Contains(t, output, "Tech Stack: Go, Postgres")
}

func TestPrintJob_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintJob(nil)
	assert.Empty(t, buf.String())
}

func TestPrintCoverage(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintCoverage(types.CoverageReport{
		OverallScore:        0.75,
		RequiredSkillsScore: 0.5,
		MatchedRequired:     []string{"Go"},
		MissingRequired:     []string{"Rust"},
		MatchedTech:         []string{"Postgres"},
		TotalKeywords:       4,
		TotalMatched:        3,
		Recommendation:      "Good match",
	})
	output := buf.String()

	assert.Contains(t, output, "ATS Score: 75% (3/4 keywords)")
	assert.Contains(t, output, "Required: 1/2")
	assert.Contains(t, output, "✗ Rust")
	assert.Contains(t, output, "Tech: 1/1")
	assert.NotContains(t, output, "Preferred:")
}

func TestPrintBundleSummary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintBundleSummary(&types.SuggestionBundle{
		Job: types.JobSnapshot{Title: "Data Engineer", Company: "Acme"},
		Experiences: []types.ExperienceSuggestion{
			{ID: "w1", Title: "Engineer", Company: "Initech", Selected: true, RelevanceScore: 9,
				Bullets: []types.BulletSuggestion{{Action: types.BulletRevise}, {Action: types.BulletKeep}}},
			{ID: "w2", Title: "Intern", Company: "Globex", RelevanceScore: 2},
		},
		KeywordSuggestions: []types.KeywordHint{{Keyword: "Airflow"}},
	})
	output := buf.String()

	assert.Contains(t, output, "Experiences: 1/2 selected")
	assert.Contains(t, output, "[✓]  9  Engineer @ Initech (1 revised)")
	assert.Contains(t, output, "[ ]  2  Intern @ Globex")
	assert.Contains(t, output, "Keyword hints: Airflow")
}

func TestPrintFiles(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFiles([]pipeline.Artifact{
		{Kind: pipeline.KindTeX, Path: "out/r.tex"},
		{Kind: pipeline.KindPDF, Path: "out/r.pdf", Pages: 2, Warning: "too long"},
	})
	output := buf.String()
	assert.Contains(t, output, "out/r.tex")
	assert.Contains(t, output, "2 page(s)")
	assert.Contains(t, output, "⚠ too long")
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStats(&types.ApplicationStats{
		Total:       3,
		ByStatus:    map[types.ApplicationStatus]int{types.StatusApplied: 2, types.StatusOffer: 1},
		AvgATSScore: 0.7,
	})
	output := buf.String()

	assert.Contains(t, output, "Total Applications: 3")
	assert.Contains(t, output, "Average ATS Score:  70%")
	assert.Less(t, strings.Index(output, "applied"), strings.Index(output, "offer"))
}

func TestPrintApplications(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintApplications(nil, 10)
	assert.Contains(t, buf.String(), "No applications tracked yet")

	buf.Reset()
	p.PrintApplications([]types.Application{
		{ID: 2, Title: "SRE", Company: "Acme", Status: types.StatusApplied, ATSScore: 0.8},
		{ID: 1, Title: "Dev", Company: "Globex", Status: types.StatusDiscovered},
	}, 1)
	output := buf.String()
	assert.Contains(t, output, "#2   [applied] SRE @ Acme  ATS: 80%")
	assert.Contains(t, output, "... and 1 more")
}

func TestPrintFollowUps(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFollowUps(nil)
	assert.Contains(t, buf.String(), "Nothing due")

	buf.Reset()
	applied := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	p.PrintFollowUps([]types.Application{{ID: 4, Title: "SRE", Company: "Acme", DateApplied: &applied}})
	assert.Contains(t, buf.String(), "- #4 SRE @ Acme (applied: 2025-02-01)")
}

func TestPrintBox_LinesHaveFixedWidth(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("TITLE", "short\n"+strings.Repeat("é", 100))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
}
