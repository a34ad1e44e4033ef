package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/config"
	"github.com/jonathan/jobpilot/internal/server"
	"github.com/jonathan/jobpilot/internal/server/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the suggest/finalize workflow, profiles and the application tracker.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	mustBind("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

// serverConfig derives the HTTP settings from the loaded configuration.
func serverConfig(cfg *config.Config) (server.Config, error) {
	sc := server.Config{
		Port:        cfg.Server.Port,
		Version:     version,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   ratelimit.NewConfig(cfg.RateLimit.Enabled, cfg.RateLimit.Limit, cfg.RateLimit.Window),
	}
	if cfg.Auth.Enabled() {
		jwtCfg, err := config.NewJWTConfig(cfg.Auth)
		if err != nil {
			return server.Config{}, err
		}
		sc.JWT = jwtCfg
	}
	return sc, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withTracker(ctx); err != nil {
		return err
	}
	if err := a.withService(ctx, nil); err != nil {
		return err
	}

	sc, err := serverConfig(a.cfg)
	if err != nil {
		return err
	}
	deps := server.Deps{
		Service:  a.svc,
		Profiles: a.profiles,
		Tracker:  a.tracker,
		Sessions: a.sessions,
		Metrics:  a.metrics,
		Logger:   a.log,
	}
	if a.importer != nil {
		deps.Importer = a.importer
	}
	srv, err := server.New(sc, deps)
	if err != nil {
		return err
	}
	defer srv.Close()

	a.log.Info("starting jobpilot",
		zap.String("version", version),
		zap.Int("port", sc.Port),
		zap.String("tracker", a.cfg.Tracker.Driver),
		zap.Bool("auth", sc.JWT != nil))
	return srv.Start(ctx)
}
