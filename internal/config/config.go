// Package config loads jobpilot settings from defaults, an optional config file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. JOBPILOT_SERVER_PORT.
const EnvPrefix = "JOBPILOT"

// Config is the full application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Session   SessionConfig   `mapstructure:"session"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Render    RenderConfig    `mapstructure:"render"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port        int      `mapstructure:"port" validate:"min=1,max=65535"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LLMConfig selects and authenticates the text-generation backend
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=gemini genai vertex"`
	APIKey   string `mapstructure:"api_key"`
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
	Tier     string `mapstructure:"tier" validate:"oneof=lite standard advanced"`
}

// PathsConfig locates profiles, templates and generated files
type PathsConfig struct {
	Profile     string `mapstructure:"profile" validate:"required"`
	ProfilesDir string `mapstructure:"profiles_dir" validate:"required"`
	OutputDir   string `mapstructure:"output_dir" validate:"required"`
	Template    string `mapstructure:"template"`
}

// SessionConfig configures the suggestion session store
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// TrackerConfig selects the application tracker backend
type TrackerConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

// AuthConfig enables bearer-token auth on the API when JWTSecret is set
type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	ExpirationHours int    `mapstructure:"expiration_hours" validate:"min=1"`
}

// Enabled reports whether the API requires a bearer token.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// LogConfig configures zap
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// RenderConfig controls LaTeX compilation
type RenderConfig struct {
	CompilePDF bool `mapstructure:"compile_pdf"`
	RequirePDF bool `mapstructure:"require_pdf"`
	MaxPages   int  `mapstructure:"max_pages" validate:"min=0"`
}

// FetchConfig controls job posting retrieval
type FetchConfig struct {
	UseBrowser bool          `mapstructure:"use_browser"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// RateLimitConfig sets the API's default token bucket
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit" validate:"min=1"`
	Window  time.Duration `mapstructure:"window" validate:"gt=0"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.project", "")
	v.SetDefault("llm.location", "us-central1")
	v.SetDefault("llm.tier", "advanced")
	v.SetDefault("paths.profile", "config/master_profile.json")
	v.SetDefault("paths.profiles_dir", "config/profiles")
	v.SetDefault("paths.output_dir", "output")
	v.SetDefault("paths.template", "")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("tracker.driver", "sqlite")
	v.SetDefault("tracker.dsn", "data/applications.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.expiration_hours", 24)
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
	v.SetDefault("render.compile_pdf", true)
	v.SetDefault("render.require_pdf", false)
	v.SetDefault("render.max_pages", 1)
	v.SetDefault("fetch.use_browser", false)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 60)
	v.SetDefault("ratelimit.window", "1m")
}

// envAliases maps config keys to conventional environment variables, checked in order after
// the prefixed name.
var envAliases = map[string][]string{
	"llm.api_key":           {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"llm.project":           {"GOOGLE_CLOUD_PROJECT"},
	"llm.location":          {"GOOGLE_CLOUD_LOCATION"},
	"tracker.dsn":           {"DATABASE_URL"},
	"auth.jwt_secret":       {"JWT_SECRET"},
	"auth.expiration_hours": {"JWT_EXPIRATION_HOURS"},
	"server.port":           {"PORT"},
}

// Load reads configuration into a validated Config. When path is empty an optional
// ./jobpilot.{yaml,json,toml} is used if present.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("jobpilot")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: %s failed %s", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if c.Render.RequirePDF && !c.Render.CompilePDF {
		return fmt.Errorf("config error: render.require_pdf needs render.compile_pdf")
	}
	if c.LLM.Provider == "vertex" && c.LLM.Project == "" {
		return fmt.Errorf("config error: llm.project is required for the vertex provider")
	}
	return nil
}
