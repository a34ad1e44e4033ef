package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() *SuggestionBundle {
	return &SuggestionBundle{
		Job: JobSnapshot{
			Title:          "Data Engineer",
			Company:        "Acme",
			RequiredSkills: []string{"Python", "SQL"},
		},
		Profile: ProfileSnapshot{
			Personal:       PersonalInfo{Name: "Sam Doe"},
			Education:      []Education{{Institution: "State U", Degree: "BSc"}},
			Certifications: []string{"AWS SA"},
		},
		Experiences: []ExperienceSuggestion{
			{
				ID:       "exp_0",
				Source:   ProvenanceWork,
				Title:    "Analyst",
				Selected: true,
				Bullets: []BulletSuggestion{
					{Original: "Built reports", Suggested: "Built automated reporting pipeline", Action: BulletKeep, KeywordsAdded: []string{"pipeline"}},
				},
			},
		},
		Projects: []ProjectSuggestion{
			{ID: "proj_0", Title: "Thesis", Selected: false, Bullets: []BulletSuggestion{{Original: "Studied graphs"}}},
		},
		Skills:             SkillCategories{{Name: "Languages", Skills: []string{"Python"}}},
		KeywordSuggestions: []KeywordHint{{Keyword: "Airflow", TargetExperienceID: "exp_0"}},
	}
}

func TestSuggestionBundle_CloneIsDeep(t *testing.T) {
	original := sampleBundle()
	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.Job.RequiredSkills[0] = "Java"
	clone.Profile.Certifications[0] = "none"
	clone.Profile.Education[0].Degree = "PhD"
	clone.Experiences[0].Bullets[0].Suggested = "changed"
	clone.Experiences[0].Bullets[0].KeywordsAdded[0] = "changed"
	clone.Projects[0].Bullets[0].Original = "changed"
	clone.Skills[0].Skills[0] = "Go"
	clone.KeywordSuggestions[0].Keyword = "changed"

	assert.Equal(t, "Python", original.Job.RequiredSkills[0])
	assert.Equal(t, "AWS SA", original.Profile.Certifications[0])
	assert.Equal(t, "BSc", original.Profile.Education[0].Degree)
	assert.Equal(t, "Built automated reporting pipeline", original.Experiences[0].Bullets[0].Suggested)
	assert.Equal(t, "pipeline", original.Experiences[0].Bullets[0].KeywordsAdded[0])
	assert.Equal(t, "Studied graphs", original.Projects[0].Bullets[0].Original)
	assert.Equal(t, "Python", original.Skills[0].Skills[0])
	assert.Equal(t, "Airflow", original.KeywordSuggestions[0].Keyword)
}

func TestSuggestionBundle_CloneNil(t *testing.T) {
	var b *SuggestionBundle
	assert.Nil(t, b.Clone())
}

func TestSuggestionBundle_SelectedCount(t *testing.T) {
	exps, projs := sampleBundle().SelectedCount()
	assert.Equal(t, 1, exps)
	assert.Equal(t, 0, projs)
}

func TestSuggestionBundle_WireFormat(t *testing.T) {
	data, err := json.Marshal(sampleBundle())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"job", "profile", "experiences", "projects", "skills", "keyword_suggestions"} {
		assert.Contains(t, raw, key)
	}

	exp := raw["experiences"].([]any)[0].(map[string]any)
	assert.Equal(t, "work_experience", exp["source"])
	bullet := exp["bullets"].([]any)[0].(map[string]any)
	assert.Equal(t, "keep", bullet["action"])
}

func TestEditSet_DecodesIndexKeys(t *testing.T) {
	input := `{
		"selected_experiences": {"exp_0": false},
		"bullet_decisions": {"exp_0": {"0": {"action": "edit", "text": "New text"}, "x": {"action": "reject"}}},
		"skills": {"Languages": ["Go"]}
	}`

	var edits EditSet
	require.NoError(t, json.Unmarshal([]byte(input), &edits))

	assert.False(t, edits.SelectedExperiences["exp_0"])
	assert.Equal(t, EditDecision{Action: EditEdit, Text: "New text"}, edits.BulletDecisions["exp_0"]["0"])
	assert.Equal(t, EditReject, edits.BulletDecisions["exp_0"]["x"].Action)
	assert.Equal(t, SkillCategories{{Name: "Languages", Skills: []string{"Go"}}}, edits.Skills)
}

func TestTailoredResume_WithCoverage(t *testing.T) {
	doc := TailoredResume{TargetTitle: "Engineer"}
	report := CoverageReport{
		OverallScore:     0.5,
		MatchedRequired:  []string{"Go"},
		MissingRequired:  []string{"Rust"},
		MatchedTech:      []string{"Docker"},
		MissingPreferred: []string{"Kafka"},
	}

	got := doc.WithCoverage(report)

	assert.Equal(t, 0.5, got.ATSScore)
	assert.Equal(t, []string{"Go", "Docker"}, got.KeywordsMatched)
	assert.Equal(t, []string{"Rust"}, got.KeywordsMissing)
	assert.Zero(t, doc.ATSScore)
	assert.Nil(t, doc.KeywordsMatched)
}

func TestParsedJob_Snapshot(t *testing.T) {
	job := &ParsedJob{
		Title:            "SRE",
		Company:          "Acme",
		RequiredSkills:   []string{"Linux"},
		PreferredSkills:  []string{"Go"},
		Responsibilities: []string{"On-call"},
	}
	snap := job.Snapshot()
	assert.Equal(t, "SRE", snap.Title)
	assert.Equal(t, []string{"Go"}, snap.PreferredSkills)

	snap.RequiredSkills[0] = "Windows"
	assert.Equal(t, "Linux", job.RequiredSkills[0])

	var nilJob *ParsedJob
	assert.Equal(t, JobSnapshot{}, nilJob.Snapshot())
}

func TestApplicationStatus(t *testing.T) {
	assert.True(t, StatusApplied.Valid())
	assert.False(t, ApplicationStatus("ghosted").Valid())
	assert.True(t, StatusOffer.Closed())
	assert.True(t, StatusWithdrawn.Closed())
	assert.False(t, StatusInterview.Closed())
}
