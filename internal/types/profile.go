package types

// PersonalInfo holds the candidate's contact details
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Education represents one degree entry
type Education struct {
	ID          string   `json:"id,omitempty"`
	Institution string   `json:"institution"`
	Location    string   `json:"location,omitempty"`
	Degree      string   `json:"degree"`
	GPA         string   `json:"gpa,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

// ProfileExperience is a work or research position in the master profile
type ProfileExperience struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Company   string   `json:"company"`
	Location  string   `json:"location,omitempty"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	Bullets   []string `json:"bullets"`
}

// ProfileProject is a project in the master profile
type ProfileProject struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Institution string   `json:"institution,omitempty"`
	Date        string   `json:"date,omitempty"`
	Bullets     []string `json:"bullets"`
}

// MasterProfile is the complete, untailored resume of the candidate
type MasterProfile struct {
	Personal           PersonalInfo        `json:"personal"`
	Education          []Education         `json:"education"`
	TechnicalSkills    SkillCategories     `json:"technical_skills"`
	WorkExperience     []ProfileExperience `json:"work_experience"`
	ResearchExperience []ProfileExperience `json:"research_experience,omitempty"`
	Projects           []ProfileProject    `json:"projects,omitempty"`
	Certifications     []string            `json:"certifications,omitempty"`
}

// ProfileSnapshot is the part of the master profile copied verbatim into a tailored resume
type ProfileSnapshot struct {
	Personal       PersonalInfo `json:"personal"`
	Education      []Education  `json:"education"`
	Certifications []string     `json:"certifications"`
}

// Snapshot captures the profile fields that are not subject to tailoring.
func (p *MasterProfile) Snapshot() ProfileSnapshot {
	if p == nil {
		return ProfileSnapshot{Education: []Education{}, Certifications: []string{}}
	}
	snap := ProfileSnapshot{
		Personal:       p.Personal,
		Education:      cloneEducation(p.Education),
		Certifications: cloneStrings(p.Certifications),
	}
	if snap.Education == nil {
		snap.Education = []Education{}
	}
	if snap.Certifications == nil {
		snap.Certifications = []string{}
	}
	return snap
}

// Clone returns a deep copy of the snapshot.
func (s ProfileSnapshot) Clone() ProfileSnapshot {
	s.Education = cloneEducation(s.Education)
	s.Certifications = cloneStrings(s.Certifications)
	return s
}

func cloneEducation(in []Education) []Education {
	if in == nil {
		return nil
	}
	out := make([]Education, len(in))
	for i, e := range in {
		e.Highlights = cloneStrings(e.Highlights)
		out[i] = e
	}
	return out
}
