package types

// JobSnapshot is the subset of a parsed posting carried through a tailoring session.
// It is copied into the suggestion bundle once and never re-derived.
type JobSnapshot struct {
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	Industry        string   `json:"industry"`
	Seniority       string   `json:"seniority"`
	Summary         string   `json:"summary"`
	RequiredSkills  []string `json:"required_skills"`
	PreferredSkills []string `json:"preferred_skills"`
	TechStack       []string `json:"tech_stack"`
	Keywords        []string `json:"keywords"`
	URL             string   `json:"url,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (j JobSnapshot) Clone() JobSnapshot {
	j.RequiredSkills = cloneStrings(j.RequiredSkills)
	j.PreferredSkills = cloneStrings(j.PreferredSkills)
	j.TechStack = cloneStrings(j.TechStack)
	j.Keywords = cloneStrings(j.Keywords)
	return j
}

// ParsedJob is the full structured form of a job posting extracted from raw text
type ParsedJob struct {
	Title                 string   `json:"title"`
	Company               string   `json:"company"`
	Location              string   `json:"location"`
	RemotePolicy          string   `json:"remote_policy,omitempty"`
	SalaryRange           string   `json:"salary_range,omitempty"`
	Industry              string   `json:"industry"`
	Seniority             string   `json:"seniority"`
	RequiredSkills        []string `json:"required_skills"`
	PreferredSkills       []string `json:"preferred_skills"`
	TechStack             []string `json:"tech_stack"`
	Responsibilities      []string `json:"responsibilities"`
	Requirements          []string `json:"requirements"`
	YearsExperience       string   `json:"years_experience,omitempty"`
	EducationRequirements string   `json:"education_requirements,omitempty"`
	Keywords              []string `json:"keywords"`
	Summary               string   `json:"summary"`
	URL                   string   `json:"url,omitempty"`
}

// Snapshot returns the fields of the posting needed downstream of suggestion generation.
func (p *ParsedJob) Snapshot() JobSnapshot {
	if p == nil {
		return JobSnapshot{}
	}
	return JobSnapshot{
		Title:           p.Title,
		Company:         p.Company,
		Location:        p.Location,
		Industry:        p.Industry,
		Seniority:       p.Seniority,
		Summary:         p.Summary,
		RequiredSkills:  cloneStrings(p.RequiredSkills),
		PreferredSkills: cloneStrings(p.PreferredSkills),
		TechStack:       cloneStrings(p.TechStack),
		Keywords:        cloneStrings(p.Keywords),
		URL:             p.URL,
	}
}
