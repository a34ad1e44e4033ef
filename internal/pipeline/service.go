// Package pipeline orchestrates the two-phase tailoring workflow: suggestions are generated and
// parked in a session, then finalized against the reviewer's decisions, scored, rendered and
// tracked.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobpilot/internal/coverage"
	"github.com/jonathan/jobpilot/internal/reconcile"
	"github.com/jonathan/jobpilot/internal/session"
	"github.com/jonathan/jobpilot/internal/types"
)

// Artifact kinds produced during finalize.
const (
	KindTeX         = "tex"
	KindPDF         = "pdf"
	KindJSON        = "json"
	KindCoverLetter = "cover_letter"
)

// JobInput identifies a posting by URL or by its pasted text. Exactly one must be set.
type JobInput struct {
	URL  string `json:"jd_url,omitempty"`
	Text string `json:"jd_text,omitempty"`
}

// Validate checks that exactly one of URL and Text is set.
func (in JobInput) Validate() error {
	hasURL := strings.TrimSpace(in.URL) != ""
	hasText := strings.TrimSpace(in.Text) != ""
	switch {
	case hasURL && hasText:
		return &InputError{Field: "job", Message: "provide either jd_url or jd_text, not both"}
	case !hasURL && !hasText:
		return &InputError{Field: "job", Message: "either jd_url or jd_text is required"}
	}
	return nil
}

// JobParser turns a posting into structured fields
type JobParser interface {
	ParseJob(ctx context.Context, in JobInput) (*types.ParsedJob, error)
}

// ProfileSource loads a candidate's master profile
type ProfileSource interface {
	LoadProfile(ctx context.Context, userID string) (*types.MasterProfile, error)
}

// SuggestionGenerator proposes tailoring edits for a profile against a job
type SuggestionGenerator interface {
	GenerateSuggestions(ctx context.Context, job *types.ParsedJob, profile *types.MasterProfile) (*types.SuggestionBundle, error)
}

// OutputTarget tells renderers where to write and which file stem to use
type OutputTarget struct {
	Dir      string
	BaseName string
}

// Path returns the path for the stem plus suffix, e.g. Path(".tex").
func (o OutputTarget) Path(suffix string) string {
	return filepath.Join(o.Dir, o.BaseName+suffix)
}

// Artifact is a file produced by finalize
type Artifact struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Renderer writes a finished resume to one or more files
type Renderer interface {
	Name() string
	Render(ctx context.Context, doc *types.TailoredResume, target OutputTarget) ([]Artifact, error)
}

// CoverLetterWriter drafts a cover letter for the tailored resume
type CoverLetterWriter interface {
	WriteCoverLetter(ctx context.Context, job types.JobSnapshot, doc *types.TailoredResume) (string, error)
}

// Tracker records applications
type Tracker interface {
	Add(ctx context.Context, app *types.Application) (int64, error)
}

// SessionStore is the subset of session.Store the service uses
type SessionStore interface {
	Put(bundle *types.SuggestionBundle) (string, error)
	Get(id string) (*types.SuggestionBundle, error)
	Take(id string) (*types.SuggestionBundle, error)
	ExpiresAt(id string) (time.Time, error)
}

// FinalizeObserver is notified once per finalize attempt
type FinalizeObserver interface {
	ObserveFinalize(d time.Duration, outcome string)
}

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when a step completes
type ProgressCallback func(event ProgressEvent)

// Deps wires a Service. Parser, Profiles, Generator, Sessions and Tracker are required.
type Deps struct {
	Parser      JobParser
	Profiles    ProfileSource
	Generator   SuggestionGenerator
	Sessions    SessionStore
	Renderers   []Renderer
	CoverLetter CoverLetterWriter
	Tracker     Tracker
	OutputDir   string
	Logger      *zap.Logger
	Observer    FinalizeObserver
	OnProgress  ProgressCallback
	Now         func() time.Time
}

// Service runs the suggest and finalize phases
type Service struct {
	deps Deps
	log  *zap.Logger
	now  func() time.Time
}

// NewService validates deps and returns a Service.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Parser == nil:
		return nil, errors.New("pipeline: job parser is required")
	case deps.Profiles == nil:
		return nil, errors.New("pipeline: profile source is required")
	case deps.Generator == nil:
		return nil, errors.New("pipeline: suggestion generator is required")
	case deps.Sessions == nil:
		return nil, errors.New("pipeline: session store is required")
	case deps.Tracker == nil:
		return nil, errors.New("pipeline: tracker is required")
	}
	if deps.OutputDir == "" {
		deps.OutputDir = "output"
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{deps: deps, log: log, now: now}, nil
}

// OutputDir returns the directory finalize writes into.
func (s *Service) OutputDir() string {
	return s.deps.OutputDir
}

// SuggestRequest starts a tailoring session
type SuggestRequest struct {
	Job    JobInput
	UserID string
}

// SuggestResult carries the new session and its bundle for review
type SuggestResult struct {
	SessionID   string                  `json:"session_id"`
	ExpiresAt   time.Time               `json:"expires_at"`
	Suggestions *types.SuggestionBundle `json:"suggestions"`
}

// ParseJob validates the input and runs the job parser, wrapping failures as GenerationError.
func (s *Service) ParseJob(ctx context.Context, in JobInput) (*types.ParsedJob, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	job, err := s.deps.Parser.ParseJob(ctx, in)
	if err != nil {
		return nil, &GenerationError{Stage: "parse_job", Cause: err}
	}
	return job, nil
}

// Suggest parses the posting, generates suggestions and parks them in a new session.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResult, error) {
	job, err := s.ParseJob(ctx, req.Job)
	if err != nil {
		return nil, err
	}
	s.emit("parse_job", fmt.Sprintf("Parsed %s at %s", job.Title, job.Company), job)

	profile, err := s.deps.Profiles.LoadProfile(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	bundle, err := s.deps.Generator.GenerateSuggestions(ctx, job, profile)
	if err != nil {
		return nil, &GenerationError{Stage: "generate_suggestions", Cause: err}
	}
	if bundle == nil {
		return nil, &GenerationError{Stage: "generate_suggestions", Cause: errors.New("generator returned no bundle")}
	}
	exps, projs := bundle.SelectedCount()
	s.emit("generate_suggestions",
		fmt.Sprintf("Suggested %d/%d experiences and %d/%d projects", exps, len(bundle.Experiences), projs, len(bundle.Projects)), nil)

	id, err := s.deps.Sessions.Put(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	expiresAt, err := s.deps.Sessions.ExpiresAt(id)
	if err != nil {
		return nil, &SessionExpiredError{SessionID: id}
	}
	s.log.Info("suggestions ready",
		zap.String("session_id", id),
		zap.String("company", bundle.Job.Company),
		zap.String("title", bundle.Job.Title),
		zap.Int("experiences", len(bundle.Experiences)),
		zap.Int("projects", len(bundle.Projects)))

	return &SuggestResult{
		SessionID:   id,
		ExpiresAt:   expiresAt,
		Suggestions: bundle,
	}, nil
}

// Session returns the bundle of a live session without consuming it.
func (s *Service) Session(id string) (*types.SuggestionBundle, error) {
	bundle, err := s.deps.Sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, &SessionExpiredError{SessionID: id}
	}
	return bundle, err
}

// FinalizeRequest applies a reviewer's decisions to a session
type FinalizeRequest struct {
	SessionID string
	Edits     types.EditSet
	// Source is recorded on the tracked application, e.g. "web_ui" or "cli".
	Source string
}

// FinalizeResult reports everything finalize produced
type FinalizeResult struct {
	ApplicationID int64                 `json:"application_id"`
	Company       string                `json:"company"`
	Title         string                `json:"title"`
	Coverage      types.CoverageReport  `json:"ats_analysis"`
	Files         []Artifact            `json:"files"`
	CoverLetter   string                `json:"cover_letter,omitempty"`
	Resume        *types.TailoredResume `json:"resume"`
}

// File returns the first artifact of the given kind.
func (r *FinalizeResult) File(kind string) (Artifact, bool) {
	for _, a := range r.Files {
		if a.Kind == kind {
			return a, true
		}
	}
	return Artifact{}, false
}

// Finalize consumes the session, reconciles the reviewer's edits, scores the result, renders
// it and records the application. A session can be finalized at most once; a failure after the
// session is consumed still consumes it. Files written before a failure are left on disk.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (result *FinalizeResult, err error) {
	start := s.now()
	defer func() {
		if s.deps.Observer != nil {
			s.deps.Observer.ObserveFinalize(s.now().Sub(start), outcome(err))
		}
	}()

	bundle, err := s.deps.Sessions.Take(req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.log.Info("finalize on unknown session", zap.String("session_id", req.SessionID))
			return nil, &SessionExpiredError{SessionID: req.SessionID}
		}
		return nil, err
	}

	doc := reconcile.Apply(bundle, &req.Edits)
	report := coverage.Analyze(doc, bundle.Job)
	doc = doc.WithCoverage(report)
	s.emit("reconcile", fmt.Sprintf("Coverage %.0f%% (%d/%d keywords)", report.OverallScore*100, report.TotalMatched, report.TotalKeywords), report)

	target := OutputTarget{
		Dir:      s.deps.OutputDir,
		BaseName: BaseName(bundle.Profile.Personal.Name, bundle.Job.Company, bundle.Job.Title, start),
	}
	if err := os.MkdirAll(target.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	artifacts, letter, err := s.render(ctx, bundle.Job, doc, target)
	if err != nil {
		return nil, err
	}
	s.emit("render", fmt.Sprintf("Wrote %d files to %s", len(artifacts), target.Dir), artifacts)

	source := req.Source
	if source == "" {
		source = "web_ui"
	}
	discovered := start
	app := &types.Application{
		Company:         bundle.Job.Company,
		Title:           bundle.Job.Title,
		Location:        bundle.Job.Location,
		URL:             bundle.Job.URL,
		Source:          source,
		Status:          types.StatusResumeReady,
		ResumePath:      resumePath(artifacts),
		CoverLetterPath: pathOf(artifacts, KindCoverLetter),
		ATSScore:        doc.ATSScore,
		KeywordsMatched: doc.KeywordsMatched,
		KeywordsMissing: doc.KeywordsMissing,
		DateDiscovered:  &discovered,
	}
	appID, err := s.deps.Tracker.Add(ctx, app)
	if err != nil {
		return nil, &TrackerError{Cause: err}
	}

	s.log.Info("finalized session",
		zap.String("session_id", req.SessionID),
		zap.Int64("application_id", appID),
		zap.Float64("ats_score", report.OverallScore),
		zap.Int("files", len(artifacts)))

	return &FinalizeResult{
		ApplicationID: appID,
		Company:       bundle.Job.Company,
		Title:         bundle.Job.Title,
		Coverage:      report,
		Files:         artifacts,
		CoverLetter:   letter,
		Resume:        doc,
	}, nil
}

// Tailor runs both phases back to back, accepting every suggestion as proposed.
func (s *Service) Tailor(ctx context.Context, req SuggestRequest, source string) (*FinalizeResult, error) {
	suggested, err := s.Suggest(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID, Source: source})
}

// render runs every renderer and the cover letter writer concurrently. The first failure
// cancels the others.
func (s *Service) render(ctx context.Context, job types.JobSnapshot, doc *types.TailoredResume, target OutputTarget) ([]Artifact, string, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		mu        sync.Mutex
		artifacts []Artifact
		letter    string
	)
	collect := func(items ...Artifact) {
		mu.Lock()
		defer mu.Unlock()
		artifacts = append(artifacts, items...)
	}

	for _, r := range s.deps.Renderers {
		g.Go(func() error {
			out, err := r.Render(gctx, doc, target)
			if err != nil {
				return &RenderError{Renderer: r.Name(), Cause: err}
			}
			for _, a := range out {
				if a.Warning != "" {
					s.log.Warn("render warning", zap.String("renderer", r.Name()), zap.String("warning", a.Warning))
				}
			}
			collect(out...)
			return nil
		})
	}

	if s.deps.CoverLetter != nil {
		g.Go(func() error {
			text, err := s.deps.CoverLetter.WriteCoverLetter(gctx, job, doc)
			if err != nil {
				return &GenerationError{Stage: "cover_letter", Cause: err}
			}
			path := target.Path("_cover_letter.txt")
			if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write cover letter: %w", err)
			}
			mu.Lock()
			letter = text
			mu.Unlock()
			collect(Artifact{Kind: KindCoverLetter, Path: path})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Kind != artifacts[j].Kind {
			return artifacts[i].Kind < artifacts[j].Kind
		}
		return artifacts[i].Path < artifacts[j].Path
	})
	if artifacts == nil {
		artifacts = []Artifact{}
	}
	return artifacts, letter, nil
}

func (s *Service) emit(step, message string, content any) {
	if s.deps.OnProgress != nil {
		s.deps.OnProgress(ProgressEvent{Step: step, Message: message, Content: content})
	}
}

// resumePath prefers the PDF and falls back to the LaTeX source.
func resumePath(artifacts []Artifact) string {
	if p := pathOf(artifacts, KindPDF); p != "" {
		return p
	}
	return pathOf(artifacts, KindTeX)
}

func pathOf(artifacts []Artifact, kind string) string {
	for _, a := range artifacts {
		if a.Kind == kind {
			return a.Path
		}
	}
	return ""
}

func outcome(err error) string {
	var expired *SessionExpiredError
	var gen *GenerationError
	var render *RenderError
	var tracker *TrackerError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &expired):
		return "session_expired"
	case errors.As(err, &gen):
		return "generation_failed"
	case errors.As(err, &render):
		return "render_failed"
	case errors.As(err, &tracker):
		return "tracker_failed"
	default:
		return "error"
	}
}
