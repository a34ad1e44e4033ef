package types

// EditAction is a reviewer's decision on one suggested bullet
type EditAction string

const (
	EditAccept EditAction = "accept"
	EditReject EditAction = "reject"
	EditEdit   EditAction = "edit"
)

// EditDecision is the reviewer's verdict on one bullet. Text is only meaningful for EditEdit.
type EditDecision struct {
	Action EditAction `json:"action"`
	Text   string     `json:"text,omitempty"`
}

// BulletDecisions maps a decimal bullet index ("0", "1", ...) to a decision
type BulletDecisions map[string]EditDecision

// EditSet carries every decision a reviewer made on a suggestion bundle. All fields are optional.
type EditSet struct {
	SelectedExperiences    map[string]bool            `json:"selected_experiences,omitempty"`
	BulletDecisions        map[string]BulletDecisions `json:"bullet_decisions,omitempty"`
	SelectedProjects       map[string]bool            `json:"selected_projects,omitempty"`
	ProjectBulletDecisions map[string]BulletDecisions `json:"project_bullet_decisions,omitempty"`
	// Skills replaces the bundle's skills when non-nil, even if empty.
	Skills SkillCategories `json:"skills,omitempty"`
}
