package engine

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the genai-backed engine. When Project is set the
// Vertex AI backend is used, otherwise the Gemini API with APIKey.
type GeminiConfig struct {
	APIKey   string
	Model    string
	Project  string
	Location string
}

// Gemini is an Engine backed by a single long-lived genai.Client.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini constructs the genai client once; it is shared by every request.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{}
	if cfg.Project != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini engine: API key or Vertex project required")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini engine: new client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Respond blocks until the complete response is generated.
func (g *Gemini) Respond(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// StreamResponse accumulates streamed fragments into snapshots.
func (g *Gemini) StreamResponse(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var sb strings.Builder
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), nil) {
			if err != nil {
				yield(sb.String(), fmt.Errorf("generate content stream: %w", err))
				return
			}
			sb.WriteString(resp.Text())
			if !yield(sb.String(), nil) {
				return
			}
		}
	}
}
