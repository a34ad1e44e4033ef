// Package coverage scores how well a tailored resume covers a job posting's keywords.
package coverage

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/jobpilot/internal/types"
)

// Recommendation thresholds on the unrounded scores.
const (
	strongRequired   = 0.9
	strongOverall    = 0.7
	goodRequired     = 0.7
	moderateRequired = 0.5

	maxNamedMissing = 5
)

// Analyze computes keyword coverage of doc against job. Matching is case-insensitive substring
// containment over the resume text, so "Go" matches inside "Google". The function is pure.
func Analyze(doc *types.TailoredResume, job types.JobSnapshot) types.CoverageReport {
	text := ResumeText(doc)

	report := types.CoverageReport{}
	report.MatchedRequired, report.MissingRequired = partition(job.RequiredSkills, text)
	report.MatchedPreferred, report.MissingPreferred = partition(job.PreferredSkills, text)
	report.MatchedTech, report.MissingTech = partition(job.TechStack, text)

	union := KeywordUnion(job)
	matched := 0
	for _, kw := range union {
		if strings.Contains(text, kw) {
			matched++
		}
	}

	overall := 1.0
	if len(union) > 0 {
		overall = float64(matched) / float64(len(union))
	}

	required := 1.0
	if n := countNonBlank(job.RequiredSkills); n > 0 {
		required = float64(len(report.MatchedRequired)) / float64(n)
	}

	report.OverallScore = round2(overall)
	report.RequiredSkillsScore = round2(required)
	report.TotalKeywords = len(union)
	report.TotalMatched = matched
	report.Recommendation = Recommend(overall, required, report.MissingRequired)
	return report
}

// KeywordUnion returns the lowercased union of required, preferred, tech-stack and explicit
// keywords, deduplicated, in first-seen order. Blank entries are skipped.
func KeywordUnion(job types.JobSnapshot) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range [][]string{job.RequiredSkills, job.PreferredSkills, job.TechStack, job.Keywords} {
		for _, kw := range group {
			key := normalize(kw)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

// ResumeText builds the lowercased searchable text of a resume: skills, experience titles and
// bullets, and project titles and bullets. Personal details and education are not included.
func ResumeText(doc *types.TailoredResume) string {
	if doc == nil {
		return ""
	}
	var parts []string
	parts = append(parts, doc.TechnicalSkills.All()...)
	for _, group := range [][]types.ResumeEntry{doc.WorkExperience, doc.ResearchExperience} {
		for _, exp := range group {
			parts = append(parts, exp.Title)
			parts = append(parts, exp.Bullets...)
		}
	}
	for _, proj := range doc.Projects {
		parts = append(parts, proj.Title)
		parts = append(parts, proj.Bullets...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Recommend picks the recommendation text for a pair of scores.
func Recommend(overall, required float64, missingRequired []string) string {
	named := missingRequired
	if len(named) > maxNamedMissing {
		named = named[:maxNamedMissing]
	}
	list := strings.Join(named, ", ")

	switch {
	case required >= strongRequired && overall >= strongOverall:
		if len(named) > 0 {
			return fmt.Sprintf("Strong match. Resume is well-tailored for this role. Still missing: %s.", list)
		}
		return "Strong match. Resume is well-tailored for this role."
	case required >= goodRequired:
		if len(named) == 0 {
			return "Good match. Required skills are covered but overall keyword coverage is low. Consider working in more terms from the posting."
		}
		return fmt.Sprintf("Good match but missing some required skills: %s. Consider if you can add these through rewording.", list)
	case required >= moderateRequired:
		return fmt.Sprintf("Moderate match. Missing several required skills: %s. Worth applying only if you can speak to these in an interview.", list)
	default:
		return fmt.Sprintf("Weak match. Missing most required skills: %s. Consider whether this role fits your background before applying.", list)
	}
}

// partition splits terms by whether they occur in text, keeping the original spelling.
func partition(terms []string, text string) (matched, missing []string) {
	matched, missing = []string{}, []string{}
	for _, term := range terms {
		key := normalize(term)
		if key == "" {
			continue
		}
		if strings.Contains(text, key) {
			matched = append(matched, term)
		} else {
			missing = append(missing, term)
		}
	}
	return matched, missing
}

func countNonBlank(terms []string) int {
	n := 0
	for _, t := range terms {
		if normalize(t) != "" {
			n++
		}
	}
	return n
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
