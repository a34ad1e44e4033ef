package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/jobpilot/internal/session"
	"github.com/jonathan/jobpilot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockParser struct {
	job *types.ParsedJob
	err error
}

func (m *mockParser) ParseJob(_ context.Context, in JobInput) (*types.ParsedJob, error) {
	if m.err != nil {
		return nil, m.err
	}
	job := *m.job
	job.URL = in.URL
	return &job, nil
}

type mockProfiles struct {
	profiles map[string]*types.MasterProfile
}

func (m *mockProfiles) LoadProfile(_ context.Context, userID string) (*types.MasterProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, errors.New("profile not found")
}

type mockGenerator struct {
	bundle *types.SuggestionBundle
	err    error
	calls  int
}

func (m *mockGenerator) GenerateSuggestions(_ context.Context, job *types.ParsedJob, profile *types.MasterProfile) (*types.SuggestionBundle, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	b := m.bundle.Clone()
	b.Job = job.Snapshot()
	b.Profile = profile.Snapshot()
	return b, nil
}

type fileRenderer struct {
	name string
	kind string
	ext  string
	err  error
}

func (r *fileRenderer) Name() string { return r.name }

func (r *fileRenderer) Render(_ context.Context, doc *types.TailoredResume, target OutputTarget) ([]Artifact, error) {
	path := target.Path(r.ext)
	if err := os.WriteFile(path, []byte(doc.TargetTitle), 0o644); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return []Artifact{{Kind: r.kind, Path: path}}, nil
}

type mockCoverLetter struct {
	text string
	err  error
}

func (m *mockCoverLetter) WriteCoverLetter(_ context.Context, job types.JobSnapshot, _ *types.TailoredResume) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.text + " " + job.Company, nil
}

type mockTracker struct {
	mu   sync.Mutex
	apps []*types.Application
	err  error
}

func (m *mockTracker) Add(_ context.Context, app *types.Application) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.apps = append(m.apps, app)
	return int64(len(m.apps)), nil
}

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveFinalize(_ time.Duration, outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

type fixture struct {
	svc       *Service
	store     *session.Store
	generator *mockGenerator
	tracker   *mockTracker
	observer  *recordingObserver
	dir       string
	events    []ProgressEvent
}

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		store: session.NewStore(session.WithClock(func() time.Time { return fixedNow })),
		generator: &mockGenerator{bundle: &types.SuggestionBundle{
			Experiences: []types.ExperienceSuggestion{{
				ID: "exp_0", Source: types.ProvenanceWork, Title: "Analyst", Selected: true,
				Bullets: []types.BulletSuggestion{
					{Original: "Built reports", Suggested: "Built automated reporting pipeline in Python", Action: types.BulletKeep},
				},
			}},
			Skills: types.SkillCategories{{Name: "Languages", Skills: []string{"Python"}}},
		}},
		tracker:  &mockTracker{},
		observer: &recordingObserver{},
		dir:      filepath.Join(t.TempDir(), "out"),
	}

	deps := Deps{
		Parser: &mockParser{job: &types.ParsedJob{
			Title:          "Data Engineer",
			Company:        "Acme Corp",
			Location:       "Remote",
			RequiredSkills: []string{"Python", "SQL"},
			TechStack:      []string{"Airflow"},
		}},
		Profiles: &mockProfiles{profiles: map[string]*types.MasterProfile{
			"": {Personal: types.PersonalInfo{Name: "Sam Doe"}},
		}},
		Generator: f.generator,
		Sessions:  f.store,
		Renderers: []Renderer{
			&fileRenderer{name: "latex", kind: KindTeX, ext: ".tex"},
			&fileRenderer{name: "json", kind: KindJSON, ext: ".json"},
		},
		CoverLetter: &mockCoverLetter{text: "Dear hiring manager at"},
		Tracker:     f.tracker,
		OutputDir:   f.dir,
		Logger:      zaptest.NewLogger(t),
		Observer:    f.observer,
		OnProgress:  func(e ProgressEvent) { f.events = append(f.events, e) },
		Now:         func() time.Time { return fixedNow },
	}
	if mutate != nil {
		mutate(&deps)
	}

	svc, err := NewService(deps)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewService_RequiresDeps(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)

	f := newFixture(t, nil)
	assert.Equal(t, f.dir, f.svc.OutputDir())
}

func TestSuggest_StoresSession(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Suggest(context.Background(), SuggestRequest{Job: JobInput{URL: "https://jobs.example.com/1"}})
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, fixedNow.Add(session.DefaultTTL), res.ExpiresAt)
	assert.Equal(t, "Data Engineer", res.Suggestions.Job.Title)
	assert.Equal(t, "https://jobs.example.com/1", res.Suggestions.Job.URL)
	assert.Equal(t, "Sam Doe", res.Suggestions.Profile.Personal.Name)

	stored, err := f.svc.Session(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, res.Suggestions, stored)

	require.Len(t, f.events, 2)
	assert.Equal(t, "parse_job", f.events[0].Step)
	assert.Equal(t, "generate_suggestions", f.events[1].Step)
}

func TestSuggest_ExpiryFollowsStoreClock(t *testing.T) {
	storeNow := fixedNow.Add(-2 * time.Hour)
	store := session.NewStore(
		session.WithClock(func() time.Time { return storeNow }),
		session.WithTTL(15*time.Minute),
	)
	f := newFixture(t, func(d *Deps) { d.Sessions = store })

	res, err := f.svc.Suggest(context.Background(), SuggestRequest{Job: JobInput{Text: "Data Engineer at Acme"}})
	require.NoError(t, err)

	assert.Equal(t, storeNow.Add(15*time.Minute), res.ExpiresAt)
	expires, err := store.ExpiresAt(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, expires, res.ExpiresAt)
}

func TestSuggest_InvalidInput(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Suggest(context.Background(), SuggestRequest{})
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "job", inputErr.Field)

	_, err = f.svc.Suggest(context.Background(), SuggestRequest{Job: JobInput{URL: "https://x", Text: "text"}})
	assert.ErrorAs(t, err, &inputErr)
	assert.Zero(t, f.generator.calls)
}

func TestSuggest_ParserFailureIsGenerationError(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Parser = &mockParser{err: errors.New("llm down")} })

	_, err := f.svc.Suggest(context.Background(), SuggestRequest{Job: JobInput{Text: "posting"}})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "parse_job", genErr.Stage)
	assert.Contains(t, err.Error(), "llm down")
}

func TestSuggest_GeneratorFailureIsGenerationError(t *testing.T) {
	f := newFixture(t, nil)
	f.generator.err = errors.New("unparseable bundle JSON")

	_, err := f.svc.Suggest(context.Background(), SuggestRequest{Job: JobInput{Text: "posting"}})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "generate_suggestions", genErr.Stage)
	assert.Zero(t, f.store.Len())
}

func TestSuggest_ProfileFailure(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Suggest(context.Background(), SuggestRequest{Job: JobInput{Text: "posting"}, UserID: "ghost"})

	require.Error(t, err)
	var genErr *GenerationError
	assert.False(t, errors.As(err, &genErr))
	assert.Zero(t, f.generator.calls)
}

func TestFinalize_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	suggested, err := f.svc.Suggest(ctx, SuggestRequest{Job: JobInput{URL: "https://jobs.example.com/1"}})
	require.NoError(t, err)

	edits := types.EditSet{
		BulletDecisions: map[string]types.BulletDecisions{
			"exp_0": {"0": {Action: types.EditEdit, Text: "Shipped a Python and SQL reporting pipeline used by 5 teams"}},
		},
	}
	res, err := f.svc.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID, Edits: edits})
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.ApplicationID)
	require.Len(t, res.Resume.WorkExperience, 1)
	assert.Equal(t, []string{"Shipped a Python and SQL reporting pipeline used by 5 teams"}, res.Resume.WorkExperience[0].Bullets)
	assert.Equal(t, []string{"Python", "SQL"}, res.Coverage.MatchedRequired)
	assert.Equal(t, []string{"Airflow"}, res.Coverage.MissingTech)
	assert.Equal(t, 0.67, res.Resume.ATSScore)
	assert.Equal(t, "Dear hiring manager at Acme Corp", res.CoverLetter)

	base := "Sam_Doe_Acme_Corp_Data_Engineer_20250301_090000"
	require.Len(t, res.Files, 3)
	assert.Equal(t, KindCoverLetter, res.Files[0].Kind)
	assert.Equal(t, filepath.Join(f.dir, base+"_cover_letter.txt"), res.Files[0].Path)
	assert.Equal(t, KindJSON, res.Files[1].Kind)
	assert.Equal(t, KindTeX, res.Files[2].Kind)
	for _, file := range res.Files {
		assert.FileExists(t, file.Path)
	}

	require.Len(t, f.tracker.apps, 1)
	app := f.tracker.apps[0]
	assert.Equal(t, "Acme Corp", app.Company)
	assert.Equal(t, "Data Engineer", app.Title)
	assert.Equal(t, "Remote", app.Location)
	assert.Equal(t, "https://jobs.example.com/1", app.URL)
	assert.Equal(t, "web_ui", app.Source)
	assert.Equal(t, types.StatusResumeReady, app.Status)
	assert.Equal(t, filepath.Join(f.dir, base+".tex"), app.ResumePath)
	assert.Equal(t, filepath.Join(f.dir, base+"_cover_letter.txt"), app.CoverLetterPath)
	assert.Equal(t, []string{"Python", "SQL"}, app.KeywordsMatched)
	assert.Equal(t, []string{"Airflow"}, app.KeywordsMissing)
	assert.Equal(t, 0.67, app.ATSScore)

	assert.Equal(t, []string{"ok"}, f.observer.outcomes)
}

func TestFinalize_IsAtMostOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	suggested, err := f.svc.Suggest(ctx, SuggestRequest{Job: JobInput{Text: "posting"}})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID})
	var expired *SessionExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, SessionExpiredMessage, err.Error())
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Len(t, f.tracker.apps, 1)

	_, err = f.svc.Session(suggested.SessionID)
	assert.ErrorAs(t, err, &expired)
	assert.Equal(t, []string{"ok", "session_expired"}, f.observer.outcomes)
}

func TestFinalize_UnknownSession(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Finalize(context.Background(), FinalizeRequest{SessionID: "session_nope"})

	var expired *SessionExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, "session_nope", expired.SessionID)
	assert.Empty(t, f.tracker.apps)
}

func TestFinalize_RenderFailureKeepsPartialFiles(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Renderers = []Renderer{&fileRenderer{name: "latex", kind: KindTeX, ext: ".tex", err: errors.New("pdflatex exploded")}}
		d.CoverLetter = nil
	})
	ctx := context.Background()

	suggested, err := f.svc.Suggest(ctx, SuggestRequest{Job: JobInput{Text: "posting"}})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID})

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "latex", renderErr.Renderer)
	assert.Empty(t, f.tracker.apps)
	assert.FileExists(t, filepath.Join(f.dir, "Sam_Doe_Acme_Corp_Data_Engineer_20250301_090000.tex"))

	// The session was consumed before rendering started.
	_, err = f.svc.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID})
	var expired *SessionExpiredError
	assert.ErrorAs(t, err, &expired)
	assert.Equal(t, []string{"render_failed", "session_expired"}, f.observer.outcomes)
}

func TestFinalize_CoverLetterFailure(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.CoverLetter = &mockCoverLetter{err: errors.New("quota")} })
	ctx := context.Background()

	suggested, err := f.svc.Suggest(ctx, SuggestRequest{Job: JobInput{Text: "posting"}})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "cover_letter", genErr.Stage)
}

func TestFinalize_TrackerFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.tracker.err = errors.New("disk full")
	ctx := context.Background()

	suggested, err := f.svc.Suggest(ctx, SuggestRequest{Job: JobInput{Text: "posting"}})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID, Source: "cli"})

	var trackerErr *TrackerError
	require.ErrorAs(t, err, &trackerErr)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, []string{"tracker_failed"}, f.observer.outcomes)
}

func TestFinalize_NoRenderers(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Renderers = nil
		d.CoverLetter = nil
	})
	ctx := context.Background()

	suggested, err := f.svc.Suggest(ctx, SuggestRequest{Job: JobInput{Text: "posting"}})
	require.NoError(t, err)

	res, err := f.svc.Finalize(ctx, FinalizeRequest{SessionID: suggested.SessionID})
	require.NoError(t, err)
	assert.NotNil(t, res.Files)
	assert.Empty(t, res.Files)
	assert.Empty(t, f.tracker.apps[0].ResumePath)
}

func TestTailor_AcceptsEverything(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Tailor(context.Background(), SuggestRequest{Job: JobInput{Text: "posting"}}, "cli")
	require.NoError(t, err)

	require.Len(t, res.Resume.WorkExperience, 1)
	assert.Equal(t, []string{"Built automated reporting pipeline in Python"}, res.Resume.WorkExperience[0].Bullets)
	assert.Equal(t, "cli", f.tracker.apps[0].Source)
	assert.Zero(t, f.store.Len())
}

func TestFinalizeResult_File(t *testing.T) {
	res := &FinalizeResult{Files: []Artifact{{Kind: KindTeX, Path: "a.tex"}, {Kind: KindPDF, Path: "a.pdf", Pages: 1}}}

	pdf, ok := res.File(KindPDF)
	assert.True(t, ok)
	assert.Equal(t, 1, pdf.Pages)

	_, ok = res.File(KindCoverLetter)
	assert.False(t, ok)

	assert.Equal(t, "a.pdf", resumePath(res.Files))
}
