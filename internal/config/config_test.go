package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so a stray ./jobpilot.yaml is not picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "advanced", cfg.LLM.Tier)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "sqlite", cfg.Tracker.Driver)
	assert.Equal(t, "output", cfg.Paths.OutputDir)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 1, cfg.Render.MaxPages)
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoad_File(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
server:
  port: 9090
llm:
  provider: genai
  tier: standard
session:
  ttl: 10m
tracker:
  driver: postgres
  dsn: postgres://localhost/jobs
render:
  compile_pdf: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "genai", cfg.LLM.Provider)
	assert.Equal(t, "standard", cfg.LLM.Tier)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "postgres", cfg.Tracker.Driver)
	assert.Equal(t, "postgres://localhost/jobs", cfg.Tracker.DSN)
	assert.False(t, cfg.Render.CompilePDF)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jobpilot.yaml"), []byte("server:\n  port: 7000\n"), 0o644))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdirTemp(t)

	_, err := Load(viper.New(), "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JOBPILOT_SERVER_PORT", "9191")
	t.Setenv("JOBPILOT_SESSION_TTL", "45m")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://db/jobs")
	t.Setenv("JOBPILOT_TRACKER_DRIVER", "postgres")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.Enabled())
	assert.Equal(t, "postgres://db/jobs", cfg.Tracker.DSN)
	assert.Equal(t, "postgres", cfg.Tracker.Driver)
}

func TestLoad_PrefixedEnvBeatsAlias(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JOBPILOT_LLM_API_KEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "alias")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		chdirTemp(t)
		cfg, err := Load(viper.New(), "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad provider", mutate: func(c *Config) { c.LLM.Provider = "openai" }, wantErr: "Provider"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "Port"},
		{name: "bad driver", mutate: func(c *Config) { c.Tracker.Driver = "mysql" }, wantErr: "Driver"},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: "TTL"},
		{name: "require pdf without compile", mutate: func(c *Config) {
			c.Render.RequirePDF = true
			c.Render.CompilePDF = false
		}, wantErr: "require_pdf"},
		{name: "vertex without project", mutate: func(c *Config) { c.LLM.Provider = "vertex" }, wantErr: "llm.project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewJWTConfig(t *testing.T) {
	cfg, err := NewJWTConfig(AuthConfig{JWTSecret: "secret", ExpirationHours: 12})
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Secret)
	assert.Equal(t, 12, cfg.ExpirationHours)

	_, err = NewJWTConfig(AuthConfig{ExpirationHours: 12})
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = NewJWTConfig(AuthConfig{JWTSecret: "secret"})
	assert.ErrorContains(t, err, "JWT_EXPIRATION_HOURS")
}
