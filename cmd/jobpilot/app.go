package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/config"
	"github.com/jonathan/jobpilot/internal/coverletter"
	"github.com/jonathan/jobpilot/internal/db"
	"github.com/jonathan/jobpilot/internal/fetch"
	"github.com/jonathan/jobpilot/internal/llm"
	"github.com/jonathan/jobpilot/internal/logger"
	"github.com/jonathan/jobpilot/internal/metrics"
	"github.com/jonathan/jobpilot/internal/parsing"
	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/profile"
	"github.com/jonathan/jobpilot/internal/rendering"
	"github.com/jonathan/jobpilot/internal/rewriting"
	"github.com/jonathan/jobpilot/internal/session"
	"github.com/jonathan/jobpilot/internal/tracker"
)

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

// app holds everything a command needs. Fields are nil until the matching build step runs.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	llm      llm.Client
	metrics  *metrics.Manager
	sessions *session.Store
	profiles *profile.FileStore
	importer *profile.Importer
	tracker  tracker.Store
	svc      *pipeline.Service
}

// newApp loads configuration and builds the logger. Heavier collaborators are added with
// withTracker and withService.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	return &app{
		cfg:      cfg,
		log:      log,
		profiles: profile.NewFileStore(cfg.Paths.Profile, cfg.Paths.ProfilesDir),
	}, nil
}

// withTracker opens the configured application store.
func (a *app) withTracker(ctx context.Context) error {
	store, err := openTracker(ctx, a.cfg.Tracker)
	if err != nil {
		return err
	}
	a.tracker = store
	return nil
}

func openTracker(ctx context.Context, cfg config.TrackerConfig) (tracker.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return db.OpenApplicationStore(ctx, cfg.DSN)
	case "sqlite", "":
		if cfg.DSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create tracker directory: %w", err)
			}
		}
		return tracker.NewSQLiteStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown tracker driver %q", cfg.Driver)
	}
}

// llmConfig maps the llm section onto a client configuration.
func llmConfig(cfg config.LLMConfig) (*llm.Config, llm.ModelTier, error) {
	tier, err := llm.ParseTier(cfg.Tier)
	if err != nil {
		return nil, "", err
	}
	lc := llm.DefaultConfig()
	if p := llm.Provider(cfg.Provider); p != "" && p != llm.ProviderGemini {
		lc = lc.WithProvider(p, cfg.Project, cfg.Location)
	}
	return lc, tier, nil
}

// withService builds the LLM client, the session store and the pipeline. The tracker must
// already be open.
func (a *app) withService(ctx context.Context, onProgress pipeline.ProgressCallback) error {
	if a.tracker == nil {
		return errors.New("tracker is not open")
	}

	lc, tier, err := llmConfig(a.cfg.LLM)
	if err != nil {
		return err
	}
	client, err := llm.NewClient(ctx, lc, a.cfg.LLM.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.llm = client
	llmLog := logger.ForProvider(a.log, string(lc.Provider), lc.GetModel(tier))

	if dc, ok := client.(llm.DocumentClient); ok {
		a.importer = profile.NewImporter(dc, a.profiles,
			profile.WithImportTier(tier),
			profile.WithImportLogger(llmLog))
	}

	a.metrics = metrics.NewManager(metrics.WithRuntimeCollectors())
	a.sessions = session.NewStore(
		session.WithTTL(a.cfg.Session.TTL),
		session.WithObserver(a.metrics),
	)

	latexOpts := []rendering.LaTeXOption{rendering.WithLogger(a.log)}
	if a.cfg.Paths.Template != "" {
		latexOpts = append(latexOpts, rendering.WithTemplateFile(a.cfg.Paths.Template))
	}
	if a.cfg.Render.CompilePDF {
		latexOpts = append(latexOpts, rendering.WithPDF(a.cfg.Render.RequirePDF, a.cfg.Render.MaxPages))
	}
	latex, err := rendering.NewLaTeXRenderer(latexOpts...)
	if err != nil {
		return err
	}

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.Timeout = a.cfg.Fetch.Timeout
	fetchOpts.UseBrowser = a.cfg.Fetch.UseBrowser
	fetchOpts.Logger = a.log

	svc, err := pipeline.NewService(pipeline.Deps{
		Parser: parsing.NewParser(client,
			parsing.WithFetchOptions(fetchOpts),
			parsing.WithLogger(llmLog)),
		Profiles:    a.profiles,
		Generator:   rewriting.NewGenerator(client, rewriting.WithTier(tier), rewriting.WithLogger(llmLog)),
		Sessions:    a.sessions,
		Renderers:   []pipeline.Renderer{latex, rendering.NewJSONRenderer()},
		CoverLetter: coverletter.NewWriter(client, coverletter.WithLogger(llmLog)),
		Tracker:     a.tracker,
		OutputDir:   a.cfg.Paths.OutputDir,
		Logger:      a.log,
		Observer:    a.metrics,
		OnProgress:  onProgress,
	})
	if err != nil {
		return err
	}
	a.svc = svc
	return nil
}

// Close releases the LLM client and the tracker and flushes the logger.
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.log.Warn("closing LLM client", zap.Error(err))
		}
	}
	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			a.log.Warn("closing tracker", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
