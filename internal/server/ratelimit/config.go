package ratelimit

import (
	"net/http"
	"time"
)

// EndpointConfig is the limit for one route. A Path ending in "/" matches every path below it.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	// Burst is the bucket capacity; zero means Limit.
	Burst int
}

// Config holds rate limiting settings
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig allows 1000 requests a minute per route with the generation endpoints
// limited further.
func DefaultConfig() *Config {
	return NewConfig(true, 1000, time.Minute)
}

// NewConfig builds a Config with the given default bucket and the standard endpoint rules.
func NewConfig(enabled bool, limit int, window time.Duration, whitelist ...string) *Config {
	allowed := make(map[string]bool, len(whitelist))
	for _, ip := range whitelist {
		if ip != "" {
			allowed[ip] = true
		}
	}
	return &Config{
		Enabled:         enabled,
		DefaultLimit:    limit,
		DefaultWindow:   window,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     time.Hour,
		Whitelist:       allowed,
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs limits the routes that call the language model.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Each of these makes at least one model call.
		{Path: "/api/parse-jd", Method: http.MethodPost, Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/tailor/suggestions", Method: http.MethodPost, Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/tailor/finalize", Method: http.MethodPost, Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/tailor", Method: http.MethodPost, Limit: 10, Window: time.Hour, Burst: 2},

		{Path: "/api/profile", Method: http.MethodPut, Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/applications/", Method: http.MethodPatch, Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/api/applications/", Method: http.MethodPost, Limit: 100, Window: time.Minute, Burst: 10},
	}
}
