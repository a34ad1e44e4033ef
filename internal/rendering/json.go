package rendering

import (
	"context"
	"encoding/json"
	"os"

	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/types"
)

// JSONRenderer writes the finalized document as <base>.json
type JSONRenderer struct{}

// NewJSONRenderer returns a JSONRenderer.
func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

// Name implements pipeline.Renderer.
func (JSONRenderer) Name() string { return "json" }

// Render implements pipeline.Renderer.
func (JSONRenderer) Render(ctx context.Context, doc *types.TailoredResume, target pipeline.OutputTarget) ([]pipeline.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNilDocument
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &OutputError{Format: "json", Path: target.Path(".json"), Cause: err}
	}

	path := target.Path(".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return nil, &OutputError{Format: "json", Path: path, Cause: err}
	}
	return []pipeline.Artifact{{Kind: pipeline.KindJSON, Path: path}}, nil
}
