// Package rewriting asks an LLM for per-experience and per-bullet tailoring suggestions and
// turns the response into a SuggestionBundle.
package rewriting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/llm"
	"github.com/jonathan/jobpilot/internal/logger"
	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/prompts"
	"github.com/jonathan/jobpilot/internal/schemas"
	"github.com/jonathan/jobpilot/internal/types"
)

// Generator implements pipeline.SuggestionGenerator
type Generator struct {
	client llm.Client
	tier   llm.ModelTier
	logger *zap.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithTier selects the model tier (default advanced).
func WithTier(tier llm.ModelTier) Option {
	return func(g *Generator) { g.tier = tier }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a Generator backed by client.
func NewGenerator(client llm.Client, opts ...Option) *Generator {
	g := &Generator{client: client, tier: llm.TierAdvanced, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ pipeline.SuggestionGenerator = (*Generator)(nil)

// GenerateSuggestions prompts the model with the posting and the whole profile and returns
// the reviewed suggestion bundle. Job and profile snapshots come from the inputs, not the
// model.
func (g *Generator) GenerateSuggestions(ctx context.Context, job *types.ParsedJob, profile *types.MasterProfile) (*types.SuggestionBundle, error) {
	if job == nil || profile == nil {
		return nil, errors.New("job and profile are required")
	}
	if g.client == nil {
		return nil, &APICallError{Message: "no LLM client configured"}
	}

	prompt, err := BuildPrompt(job, profile)
	if err != nil {
		return nil, err
	}

	response, err := g.client.GenerateJSON(ctx, prompt, g.tier)
	if err != nil {
		return nil, &APICallError{Message: "failed to generate suggestions", Cause: err}
	}

	bundle, err := DecodeSuggestions(llm.CleanJSONBlock(response))
	if err != nil {
		g.logger.Debug("undecodable suggestions", zap.String("response", logger.Truncate(response, 500)))
		return nil, err
	}

	dropped := reconcileWithProfile(bundle, profile)
	if dropped > 0 {
		g.logger.Warn("dropped suggestions for unknown experiences or projects", zap.Int("count", dropped))
	}
	bundle.Job = job.Snapshot()
	bundle.Profile = profile.Snapshot()

	long := 0
	for _, exp := range bundle.Experiences {
		for _, b := range exp.Bullets {
			if b.Action == types.BulletRevise && !CheckBullet(b.Suggested).FitsLine {
				long++
			}
		}
	}
	exps, projs := bundle.SelectedCount()
	g.logger.Info("generated suggestions",
		zap.Int("experiences", len(bundle.Experiences)),
		zap.Int("projects", len(bundle.Projects)),
		zap.Int("selected_experiences", exps),
		zap.Int("selected_projects", projs),
		zap.Int("keyword_hints", len(bundle.KeywordSuggestions)),
		zap.Int("long_revisions", long))
	return bundle, nil
}

type promptExperience struct {
	types.ProfileExperience
	Source types.Provenance `json:"source"`
}

// BuildPrompt renders the suggestion prompt for job and profile.
func BuildPrompt(job *types.ParsedJob, profile *types.MasterProfile) (string, error) {
	experiences := make([]promptExperience, 0, len(profile.WorkExperience)+len(profile.ResearchExperience))
	for _, e := range profile.WorkExperience {
		experiences = append(experiences, promptExperience{ProfileExperience: e, Source: types.ProvenanceWork})
	}
	for _, e := range profile.ResearchExperience {
		experiences = append(experiences, promptExperience{ProfileExperience: e, Source: types.ProvenanceResearch})
	}

	expJSON, err := json.MarshalIndent(experiences, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode experiences: %w", err)
	}
	projects := profile.Projects
	if projects == nil {
		projects = []types.ProfileProject{}
	}
	projJSON, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode projects: %w", err)
	}
	skillsJSON, err := json.MarshalIndent(profile.TechnicalSkills, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode skills: %w", err)
	}

	return prompts.Render(prompts.TailoringFile, prompts.GenerateSuggestions, map[string]string{
		"Title":           job.Title,
		"Company":         job.Company,
		"Industry":        job.Industry,
		"RequiredSkills":  jsonList(job.RequiredSkills),
		"PreferredSkills": jsonList(job.PreferredSkills),
		"TechStack":       jsonList(job.TechStack),
		"Keywords":        jsonList(job.Keywords),
		"Summary":         job.Summary,
		"Experiences":     string(expJSON),
		"Projects":        string(projJSON),
		"Skills":          string(skillsJSON),
	})
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// DecodeSuggestions validates a model response and decodes it into a bundle without job or
// profile snapshots. Loosely typed values ("true", "7") are accepted; skill category order
// is preserved.
func DecodeSuggestions(response string) (*types.SuggestionBundle, error) {
	if err := schemas.ValidateBytes(schemas.Suggestions, []byte(response)); err != nil {
		return nil, &ParseError{Message: "response does not match the suggestions schema", Cause: err}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, &ParseError{Message: "failed to parse JSON response", Cause: err}
	}
	var ordered struct {
		Skills types.SkillCategories `json:"skills"`
	}
	if err := json.Unmarshal([]byte(response), &ordered); err != nil {
		return nil, &ParseError{Message: "failed to parse skills", Cause: err}
	}
	delete(raw, "skills")
	delete(raw, "job")
	delete(raw, "profile")

	bundle := &types.SuggestionBundle{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           bundle,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, &ParseError{Message: "failed to build decoder", Cause: err}
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &ParseError{Message: "failed to decode suggestions", Cause: err}
	}
	bundle.Skills = ordered.Skills

	for i := range bundle.Experiences {
		e := &bundle.Experiences[i]
		e.RelevanceScore = clampScore(e.RelevanceScore)
		e.Bullets = normalizeBullets(e.Bullets)
	}
	for i := range bundle.Projects {
		p := &bundle.Projects[i]
		p.RelevanceScore = clampScore(p.RelevanceScore)
		p.Bullets = normalizeBullets(p.Bullets)
	}
	if bundle.Experiences == nil {
		bundle.Experiences = []types.ExperienceSuggestion{}
	}
	if bundle.Projects == nil {
		bundle.Projects = []types.ProjectSuggestion{}
	}
	if bundle.KeywordSuggestions == nil {
		bundle.KeywordSuggestions = []types.KeywordHint{}
	}
	return bundle, nil
}

func normalizeBullets(bullets []types.BulletSuggestion) []types.BulletSuggestion {
	if bullets == nil {
		return []types.BulletSuggestion{}
	}
	for i := range bullets {
		b := &bullets[i]
		switch action := types.BulletAction(strings.ToLower(strings.TrimSpace(string(b.Action)))); action {
		case types.BulletKeep, types.BulletRevise, types.BulletRemove:
			b.Action = action
		default:
			b.Action = types.BulletKeep
		}
		if b.KeywordsAdded == nil {
			b.KeywordsAdded = []string{}
		}
	}
	return bullets
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 10:
		return 10
	default:
		return score
	}
}

// reconcileWithProfile drops suggestions whose ids are not in the profile and fills
// provenance and blank metadata from the profile entry. It returns the number dropped.
func reconcileWithProfile(bundle *types.SuggestionBundle, profile *types.MasterProfile) int {
	type expRef struct {
		exp    types.ProfileExperience
		source types.Provenance
	}
	exps := make(map[string]expRef)
	for _, e := range profile.WorkExperience {
		exps[e.ID] = expRef{e, types.ProvenanceWork}
	}
	for _, e := range profile.ResearchExperience {
		if _, dup := exps[e.ID]; !dup {
			exps[e.ID] = expRef{e, types.ProvenanceResearch}
		}
	}
	projs := make(map[string]types.ProfileProject, len(profile.Projects))
	for _, p := range profile.Projects {
		projs[p.ID] = p
	}

	dropped := 0
	seen := make(map[string]bool)
	keptExp := bundle.Experiences[:0]
	for _, s := range bundle.Experiences {
		ref, ok := exps[s.ID]
		if !ok || seen[s.ID] {
			dropped++
			continue
		}
		seen[s.ID] = true
		s.Source = ref.source
		s.Title = orElse(s.Title, ref.exp.Title)
		s.Company = orElse(s.Company, ref.exp.Company)
		s.Location = orElse(s.Location, ref.exp.Location)
		s.StartDate = orElse(s.StartDate, ref.exp.StartDate)
		s.EndDate = orElse(s.EndDate, ref.exp.EndDate)
		keptExp = append(keptExp, s)
	}
	bundle.Experiences = keptExp

	seen = make(map[string]bool)
	keptProj := bundle.Projects[:0]
	for _, s := range bundle.Projects {
		ref, ok := projs[s.ID]
		if !ok || seen[s.ID] {
			dropped++
			continue
		}
		seen[s.ID] = true
		s.Title = orElse(s.Title, ref.Title)
		s.Institution = orElse(s.Institution, ref.Institution)
		s.Date = orElse(s.Date, ref.Date)
		keptProj = append(keptProj, s)
	}
	bundle.Projects = keptProj

	if len(bundle.Skills) == 0 {
		bundle.Skills = profile.TechnicalSkills.Clone()
	}
	return dropped
}

func orElse(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
