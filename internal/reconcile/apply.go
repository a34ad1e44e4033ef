// Package reconcile merges AI suggestions with a reviewer's decisions into a final resume.
package reconcile

import (
	"strconv"
	"strings"

	"github.com/jonathan/jobpilot/internal/types"
)

// Apply builds the tailored resume for bundle under the reviewer's edits. It never fails:
// decisions for unknown experiences, projects or bullet indices are ignored. Coverage fields
// are left zero; see coverage.Analyze and TailoredResume.WithCoverage.
//
// Bullet rules, with a missing decision treated as accept:
//   - reject keeps the original text, even when the AI asked to remove the bullet
//   - edit uses the reviewer's text, then the suggestion, then the original
//   - accept drops bullets the AI marked remove and otherwise uses the suggestion or original
func Apply(bundle *types.SuggestionBundle, edits *types.EditSet) *types.TailoredResume {
	if bundle == nil {
		bundle = &types.SuggestionBundle{}
	}
	if edits == nil {
		edits = &types.EditSet{}
	}

	doc := &types.TailoredResume{
		TargetTitle:        bundle.Job.Title,
		TargetCompany:      bundle.Job.Company,
		Personal:           bundle.Profile.Personal,
		Education:          nonNil(bundle.Profile.Clone().Education),
		TechnicalSkills:    resolveSkills(bundle.Skills, edits.Skills),
		WorkExperience:     []types.ResumeEntry{},
		ResearchExperience: []types.ResumeEntry{},
		Projects:           []types.ProjectEntry{},
		Certifications:     append([]string{}, bundle.Profile.Certifications...),
		KeywordsMatched:    []string{},
		KeywordsMissing:    []string{},
	}

	for _, exp := range bundle.Experiences {
		if !included(exp.ID, exp.Selected, edits.SelectedExperiences) {
			continue
		}
		entry := types.ResumeEntry{
			ID:        exp.ID,
			Title:     exp.Title,
			Company:   exp.Company,
			Location:  exp.Location,
			StartDate: exp.StartDate,
			EndDate:   exp.EndDate,
			Bullets:   resolveBullets(exp.Bullets, edits.BulletDecisions[exp.ID]),
		}
		if exp.Source == types.ProvenanceResearch {
			doc.ResearchExperience = append(doc.ResearchExperience, entry)
		} else {
			doc.WorkExperience = append(doc.WorkExperience, entry)
		}
	}

	for _, proj := range bundle.Projects {
		if !included(proj.ID, proj.Selected, edits.SelectedProjects) {
			continue
		}
		doc.Projects = append(doc.Projects, types.ProjectEntry{
			ID:          proj.ID,
			Title:       proj.Title,
			Institution: proj.Institution,
			Date:        proj.Date,
			Bullets:     resolveBullets(proj.Bullets, edits.ProjectBulletDecisions[proj.ID]),
		})
	}

	return doc
}

// included applies an explicit reviewer choice if there is one, otherwise the AI's.
func included(id string, aiSelected bool, overrides map[string]bool) bool {
	if choice, ok := overrides[id]; ok {
		return choice
	}
	return aiSelected
}

func resolveSkills(suggested, override types.SkillCategories) types.SkillCategories {
	if override != nil {
		return override.Clone()
	}
	if suggested == nil {
		return types.SkillCategories{}
	}
	return suggested.Clone()
}

func resolveBullets(bullets []types.BulletSuggestion, decisions types.BulletDecisions) []string {
	out := make([]string, 0, len(bullets))
	for i, b := range bullets {
		decision := decisions[strconv.Itoa(i)]
		if text, keep := resolveBullet(b, decision); keep {
			out = append(out, text)
		}
	}
	return out
}

// resolveBullet returns the text to emit for one bullet and whether to emit it at all.
// Unrecognised actions behave like accept.
func resolveBullet(b types.BulletSuggestion, d types.EditDecision) (string, bool) {
	switch d.Action {
	case types.EditReject:
		return b.Original, true
	case types.EditEdit:
		return firstNonBlank(d.Text, b.Suggested, b.Original), true
	default:
		if b.Action == types.BulletRemove {
			return "", false
		}
		return firstNonBlank(b.Suggested, b.Original), true
	}
}

func firstNonBlank(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

func nonNil(in []types.Education) []types.Education {
	if in == nil {
		return []types.Education{}
	}
	return in
}
