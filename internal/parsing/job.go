// Package parsing turns raw job postings into structured ParsedJob values using an LLM.
package parsing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/fetch"
	"github.com/jonathan/jobpilot/internal/llm"
	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/schemas"
	"github.com/jonathan/jobpilot/internal/types"
)

// FetchFunc retrieves the text of a posting URL.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Parser implements pipeline.JobParser
type Parser struct {
	client llm.Client
	tier   llm.ModelTier
	fetch  FetchFunc
	logger *zap.Logger
}

// Option configures a Parser
type Option func(*Parser)

// WithTier selects the model tier used for extraction (default standard).
func WithTier(tier llm.ModelTier) Option {
	return func(p *Parser) { p.tier = tier }
}

// WithFetchOptions fetches posting URLs with fetch.Job and the given options.
func WithFetchOptions(opts *fetch.Options) Option {
	return func(p *Parser) {
		p.fetch = func(ctx context.Context, url string) (string, error) {
			res, err := fetch.Job(ctx, url, opts)
			if err != nil {
				return "", err
			}
			return res.Text, nil
		}
	}
}

// WithFetchFunc replaces URL retrieval entirely.
func WithFetchFunc(fn FetchFunc) Option {
	return func(p *Parser) { p.fetch = fn }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// NewParser creates a Parser backed by client.
func NewParser(client llm.Client, opts ...Option) *Parser {
	p := &Parser{client: client, tier: llm.TierStandard, logger: zap.NewNop()}
	WithFetchOptions(fetch.DefaultOptions())(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ pipeline.JobParser = (*Parser)(nil)

// ParseJob fetches the posting when a URL is given, then extracts its structure.
func (p *Parser) ParseJob(ctx context.Context, in pipeline.JobInput) (*types.ParsedJob, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	url := strings.TrimSpace(in.URL)
	if url != "" {
		fetched, err := p.fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(fetched)
		if text == "" {
			return nil, &fetch.Error{URL: url, Message: "page contained no text"}
		}
		p.logger.Debug("fetched posting", zap.String("url", url), zap.Int("chars", len(text)))
	}

	job, err := p.ParseText(ctx, text)
	if err != nil {
		return nil, err
	}
	job.URL = url
	return job, nil
}

// ParseText extracts a ParsedJob from posting text.
func (p *Parser) ParseText(ctx context.Context, text string) (*types.ParsedJob, error) {
	if p.client == nil {
		return nil, ErrNoClient
	}

	prompt := llm.BuildExtractionPrompt(llm.JobPostingSchema(), text)
	response, err := p.client.GenerateJSON(ctx, prompt, p.tier)
	if err != nil {
		return nil, &ExtractError{Step: StepModel, Detail: "generation failed", Cause: err}
	}

	job, err := DecodeParsedJob(llm.CleanJSONBlock(response))
	if err != nil {
		return nil, err
	}
	if err := postProcess(job); err != nil {
		return nil, err
	}
	p.logger.Info("parsed job posting",
		zap.String("title", job.Title),
		zap.String("company", job.Company),
		zap.Int("keywords", len(job.Keywords)))
	return job, nil
}

// DecodeParsedJob validates an LLM JSON response against the posting schema and decodes it
// leniently: numbers where strings are expected are converted, and nulls become zero values.
func DecodeParsedJob(response string) (*types.ParsedJob, error) {
	if err := schemas.ValidateBytes(schemas.ParsedJob, []byte(response)); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) {
			return nil, &ExtractError{Step: StepDecode, Detail: "response does not match the posting schema", Cause: err}
		}
		return nil, &ExtractError{Step: StepDecode, Detail: "response is not valid JSON", Cause: err}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, &ExtractError{Step: StepDecode, Detail: "response is not valid JSON", Cause: err}
	}

	var job types.ParsedJob
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &job,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, &ExtractError{Step: StepDecode, Detail: "decoder setup", Cause: err}
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &ExtractError{Step: StepDecode, Detail: "fields do not fit a posting", Cause: err}
	}
	return &job, nil
}

func postProcess(job *types.ParsedJob) error {
	job.Title = strings.TrimSpace(job.Title)
	job.Company = strings.TrimSpace(job.Company)
	job.Location = strings.TrimSpace(job.Location)
	job.Industry = strings.TrimSpace(job.Industry)
	job.Summary = strings.TrimSpace(job.Summary)
	job.SalaryRange = strings.TrimSpace(job.SalaryRange)
	job.YearsExperience = strings.TrimSpace(job.YearsExperience)
	job.EducationRequirements = strings.TrimSpace(job.EducationRequirements)
	job.RemotePolicy = normalizeEnum(job.RemotePolicy, "remote", "hybrid", "onsite")
	job.Seniority = normalizeEnum(job.Seniority, "intern", "junior", "mid", "senior", "staff", "principal", "lead", "director")

	job.RequiredSkills = nonNil(NormalizeSkills(job.RequiredSkills))
	job.PreferredSkills = nonNil(NormalizeSkills(job.PreferredSkills))
	job.TechStack = nonNil(NormalizeSkills(job.TechStack))
	job.Keywords = nonNil(NormalizeSkills(job.Keywords))
	job.Responsibilities = nonNil(NormalizeLines(job.Responsibilities))
	job.Requirements = nonNil(NormalizeLines(job.Requirements))

	if job.Title == "" {
		return &ExtractError{Step: StepCheck, Field: "title", Detail: "no job title found in posting"}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
