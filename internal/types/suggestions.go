package types

// BulletAction is the AI's verdict on a single resume bullet
type BulletAction string

const (
	BulletKeep   BulletAction = "keep"
	BulletRevise BulletAction = "revise"
	BulletRemove BulletAction = "remove"
)

// Provenance records which section of the master profile an experience came from
type Provenance string

const (
	ProvenanceWork     Provenance = "work_experience"
	ProvenanceResearch Provenance = "research_experience"
)

// BulletSuggestion is one line of resume content and the AI's opinion on it.
// An empty Suggested means no rewrite was produced.
type BulletSuggestion struct {
	Original      string       `json:"original"`
	Suggested     string       `json:"suggested"`
	Action        BulletAction `json:"action"`
	Reason        string       `json:"reason"`
	KeywordsAdded []string     `json:"keywords_added"`
}

// ExperienceSuggestion is a proposed version of one work or research position
type ExperienceSuggestion struct {
	ID              string             `json:"id"`
	Source          Provenance         `json:"source"`
	Title           string             `json:"title"`
	Company         string             `json:"company"`
	Location        string             `json:"location"`
	StartDate       string             `json:"start_date"`
	EndDate         string             `json:"end_date"`
	Selected        bool               `json:"selected"`
	RelevanceScore  int                `json:"relevance_score"`
	RelevanceReason string             `json:"relevance_reason"`
	Bullets         []BulletSuggestion `json:"bullets"`
}

// ProjectSuggestion is a proposed version of one project
type ProjectSuggestion struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Institution     string             `json:"institution"`
	Date            string             `json:"date"`
	Selected        bool               `json:"selected"`
	RelevanceScore  int                `json:"relevance_score"`
	RelevanceReason string             `json:"relevance_reason"`
	Bullets         []BulletSuggestion `json:"bullets"`
}

// KeywordHint points at a place where a missing keyword could be worked in
type KeywordHint struct {
	Keyword            string `json:"keyword"`
	TargetExperienceID string `json:"target_experience_id"`
	TargetBulletIndex  int    `json:"target_bullet_index"`
	Suggestion         string `json:"suggestion"`
}

// SuggestionBundle is the full set of AI-proposed edits for one job/profile pairing
type SuggestionBundle struct {
	Job                JobSnapshot            `json:"job"`
	Profile            ProfileSnapshot        `json:"profile"`
	Experiences        []ExperienceSuggestion `json:"experiences"`
	Projects           []ProjectSuggestion    `json:"projects"`
	Skills             SkillCategories        `json:"skills"`
	KeywordSuggestions []KeywordHint          `json:"keyword_suggestions"`
}

// Clone returns a deep copy that shares no slices with the receiver.
func (b *SuggestionBundle) Clone() *SuggestionBundle {
	if b == nil {
		return nil
	}
	out := &SuggestionBundle{
		Job:     b.Job.Clone(),
		Profile: b.Profile.Clone(),
		Skills:  b.Skills.Clone(),
	}
	if b.Experiences != nil {
		out.Experiences = make([]ExperienceSuggestion, len(b.Experiences))
		for i, e := range b.Experiences {
			e.Bullets = cloneBullets(e.Bullets)
			out.Experiences[i] = e
		}
	}
	if b.Projects != nil {
		out.Projects = make([]ProjectSuggestion, len(b.Projects))
		for i, p := range b.Projects {
			p.Bullets = cloneBullets(p.Bullets)
			out.Projects[i] = p
		}
	}
	if b.KeywordSuggestions != nil {
		out.KeywordSuggestions = make([]KeywordHint, len(b.KeywordSuggestions))
		copy(out.KeywordSuggestions, b.KeywordSuggestions)
	}
	return out
}

// SelectedCount returns how many experiences and projects the AI recommended including.
func (b *SuggestionBundle) SelectedCount() (experiences, projects int) {
	for _, e := range b.Experiences {
		if e.Selected {
			experiences++
		}
	}
	for _, p := range b.Projects {
		if p.Selected {
			projects++
		}
	}
	return experiences, projects
}

func cloneBullets(in []BulletSuggestion) []BulletSuggestion {
	if in == nil {
		return nil
	}
	out := make([]BulletSuggestion, len(in))
	for i, b := range in {
		b.KeywordsAdded = cloneStrings(b.KeywordsAdded)
		out[i] = b
	}
	return out
}
