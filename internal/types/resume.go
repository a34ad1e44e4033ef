package types

// ResumeEntry is a finalized work or research position
type ResumeEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Company   string   `json:"company"`
	Location  string   `json:"location"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Bullets   []string `json:"bullets"`
}

// ProjectEntry is a finalized project
type ProjectEntry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Institution string   `json:"institution"`
	Date        string   `json:"date"`
	Bullets     []string `json:"bullets"`
}

// TailoredResume is the finalized resume document handed to renderers.
// Values are not modified after construction; WithCoverage returns a copy.
type TailoredResume struct {
	TargetTitle        string          `json:"target_title"`
	TargetCompany      string          `json:"target_company"`
	Personal           PersonalInfo    `json:"personal"`
	Education          []Education     `json:"education"`
	TechnicalSkills    SkillCategories `json:"technical_skills"`
	WorkExperience     []ResumeEntry   `json:"work_experience"`
	ResearchExperience []ResumeEntry   `json:"research_experience"`
	Projects           []ProjectEntry  `json:"projects"`
	Certifications     []string        `json:"certifications"`
	ATSScore           float64         `json:"ats_score"`
	KeywordsMatched    []string        `json:"keywords_matched"`
	KeywordsMissing    []string        `json:"keywords_missing"`
}

// WithCoverage returns a copy of the document carrying the report's score and keyword lists.
// Matched and missing keywords are the required and tech-stack categories combined.
func (r TailoredResume) WithCoverage(report CoverageReport) *TailoredResume {
	r.ATSScore = report.OverallScore
	r.KeywordsMatched = append(append([]string{}, report.MatchedRequired...), report.MatchedTech...)
	r.KeywordsMissing = append(append([]string{}, report.MissingRequired...), report.MissingTech...)
	return &r
}

// CoverageReport is the keyword coverage of a resume against one job posting
type CoverageReport struct {
	OverallScore        float64  `json:"overall_score"`
	RequiredSkillsScore float64  `json:"required_skills_score"`
	MatchedRequired     []string `json:"matched_required"`
	MissingRequired     []string `json:"missing_required"`
	MatchedPreferred    []string `json:"matched_preferred"`
	MissingPreferred    []string `json:"missing_preferred"`
	MatchedTech         []string `json:"matched_tech"`
	MissingTech         []string `json:"missing_tech"`
	TotalKeywords       int      `json:"total_keywords"`
	TotalMatched        int      `json:"total_matched"`
	Recommendation      string   `json:"recommendation"`
}
