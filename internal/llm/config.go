// Package llm provides model tier configuration and client abstractions over the Gemini
// family of backends.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, extraction, basic summarization
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: parsing, structured output
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: suggestion generation, cover letters
	TierAdvanced ModelTier = "advanced"
)

// ParseTier converts a config string into a ModelTier. Empty means advanced.
func ParseTier(s string) (ModelTier, error) {
	switch ModelTier(strings.ToLower(strings.TrimSpace(s))) {
	case "", TierAdvanced:
		return TierAdvanced, nil
	case TierStandard:
		return TierStandard, nil
	case TierLite:
		return TierLite, nil
	default:
		return "", fmt.Errorf("unknown model tier %q", s)
	}
}

// Provider represents an LLM backend
type Provider string

const (
	// ProviderGemini uses the generative-ai-go SDK with an API key
	ProviderGemini Provider = "gemini"
	// ProviderGenAI uses the unified google.golang.org/genai SDK with an API key
	ProviderGenAI Provider = "genai"
	// ProviderVertex uses Vertex AI with application default credentials
	ProviderVertex Provider = "vertex"
)

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Project     string
	Location    string
	Temperature float32
}

// DefaultConfig returns the default configuration (Gemini API)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Location:    "us-central1",
		Temperature: 0.1,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	next := *c
	next.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		next.Models[k] = v
	}
	next.Models[tier] = model
	return &next
}

// WithProvider returns a copy of c targeting another backend.
func (c *Config) WithProvider(p Provider, project, location string) *Config {
	next := c.WithModel(TierAdvanced, c.GetModel(TierAdvanced))
	next.Provider = p
	next.Project = project
	if location != "" {
		next.Location = location
	}
	return next
}
