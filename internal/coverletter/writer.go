// Package coverletter drafts cover letters for a finalized resume.
package coverletter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/llm"
	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/prompts"
	"github.com/jonathan/jobpilot/internal/types"
)

// Defaults for the letter's voice and size
const (
	DefaultTone     = "professional but personable"
	DefaultMaxWords = 350
)

// maxStrengths bounds how many experiences are summarized in the prompt.
const maxStrengths = 4

// Writer implements pipeline.CoverLetterWriter
type Writer struct {
	client   llm.Client
	tier     llm.ModelTier
	tone     string
	maxWords int
	logger   *zap.Logger
}

// Option configures a Writer
type Option func(*Writer)

// WithTone sets the requested tone.
func WithTone(tone string) Option {
	return func(w *Writer) { w.tone = tone }
}

// WithMaxWords sets the word ceiling passed to the model.
func WithMaxWords(n int) Option {
	return func(w *Writer) { w.maxWords = n }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) { w.logger = logger }
}

// NewWriter creates a Writer backed by client.
func NewWriter(client llm.Client, opts ...Option) *Writer {
	w := &Writer{
		client:   client,
		tier:     llm.TierAdvanced,
		tone:     DefaultTone,
		maxWords: DefaultMaxWords,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

var _ pipeline.CoverLetterWriter = (*Writer)(nil)

// WriteCoverLetter returns the letter body paragraphs, with no salutation or address block.
func (w *Writer) WriteCoverLetter(ctx context.Context, job types.JobSnapshot, doc *types.TailoredResume) (string, error) {
	if doc == nil {
		return "", errors.New("resume is required")
	}

	prompt, err := BuildPrompt(job, doc, w.tone, w.maxWords)
	if err != nil {
		return "", err
	}
	text, err := w.client.GenerateContent(ctx, prompt, w.tier)
	if err != nil {
		return "", fmt.Errorf("failed to generate cover letter: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty cover letter")
	}
	words := len(strings.Fields(text))
	if words > w.maxWords {
		w.logger.Warn("cover letter exceeds word limit", zap.Int("words", words), zap.Int("limit", w.maxWords))
	}
	return text, nil
}

// BuildPrompt renders the cover letter prompt.
func BuildPrompt(job types.JobSnapshot, doc *types.TailoredResume, tone string, maxWords int) (string, error) {
	experiences := append(append([]types.ResumeEntry{}, doc.WorkExperience...), doc.ResearchExperience...)
	strengths := make([]string, 0, maxStrengths)
	for _, e := range experiences {
		if len(strengths) == maxStrengths {
			break
		}
		bullets := e.Bullets
		if len(bullets) > 2 {
			bullets = bullets[:2]
		}
		strengths = append(strengths, fmt.Sprintf("- %s at %s: %s", e.Title, e.Company, strings.Join(bullets, "; ")))
	}

	currentRole := "Professional"
	if len(doc.WorkExperience) > 0 {
		w := doc.WorkExperience[0]
		currentRole = fmt.Sprintf("%s at %s", w.Title, w.Company)
	}
	education := "N/A"
	if len(doc.Education) > 0 {
		e := doc.Education[0]
		education = fmt.Sprintf("%s from %s", e.Degree, e.Institution)
		if e.GPA != "" {
			education += fmt.Sprintf(" (GPA %s)", e.GPA)
		}
	}
	name := doc.Personal.Name
	if name == "" {
		name = "Candidate"
	}

	requirements := job.RequiredSkills
	if len(requirements) > 8 {
		requirements = requirements[:8]
	}

	return prompts.Render(prompts.CoverLetterFile, prompts.WriteCoverLetter, map[string]string{
		"Name":         name,
		"CurrentRole":  currentRole,
		"Education":    education,
		"Strengths":    strings.Join(strengths, "\n"),
		"Title":        job.Title,
		"Company":      job.Company,
		"Industry":     job.Industry,
		"Requirements": strings.Join(requirements, ", "),
		"Summary":      job.Summary,
		"Tone":         tone,
		"MaxWords":     strconv.Itoa(maxWords),
	})
}
