package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexClient implements Client on Vertex AI
type VertexClient struct {
	client *genai.Client
	config *Config
}

// NewVertexClient connects to Vertex AI in config.Project/config.Location using application
// default credentials.
func NewVertexClient(ctx context.Context, config *Config) (*VertexClient, error) {
	if config.Project == "" {
		return nil, errors.New("vertex provider requires a project ID")
	}
	location := config.Location
	if location == "" {
		location = "us-central1"
	}

	client, err := genai.NewClient(ctx, config.Project, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}
	return &VertexClient{client: client, config: config}, nil
}

// GenerateContent generates text content using the specified model tier
func (c *VertexClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.generate(ctx, tier, false, genai.Text(prompt))
}

// GenerateJSON generates JSON content using the specified model tier
func (c *VertexClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.generate(ctx, tier, true, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GenerateJSONFromDocument sends doc as an inline blob ahead of the prompt.
func (c *VertexClient) GenerateJSONFromDocument(ctx context.Context, prompt string, doc Document, tier ModelTier) (string, error) {
	if len(doc.Data) == 0 {
		return "", errors.New("document is empty")
	}
	text, err := c.generate(ctx, tier, true, genai.Blob{MIMEType: doc.MIMEType, Data: doc.Data}, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *VertexClient) generate(ctx context.Context, tier ModelTier, asJSON bool, parts ...genai.Part) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature)
	if asJSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text parts in response")
	}
	return sb.String(), nil
}

// GetModel returns the model name for a tier
func (c *VertexClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *VertexClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
