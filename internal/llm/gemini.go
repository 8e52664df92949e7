package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Model is a text-in, text-out completion capability.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tunes a single model binding.
type Options struct {
	Name        string
	Temperature float32
	MaxTokens   int32
	// System is sent as the system instruction when non-empty.
	System string
}

// Gemini is the Model implementation backed by google.golang.org/genai.
// Vertex vs Gemini Developer API is selected by the GOOGLE_GENAI_USE_VERTEXAI,
// GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION environment variables unless
// an API key is supplied.
type Gemini struct {
	client *genai.Client
	opts   Options
}

// NewClient creates the shared genai client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: create genai client: %w", err)
	}
	return client, nil
}

// NewGemini binds a model name and generation options to a client.
func NewGemini(client *genai.Client, opts Options) *Gemini {
	return &Gemini{client: client, opts: opts}
}

// Generate sends prompt as a single user turn and returns the response text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	temperature := g.opts.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: g.opts.MaxTokens,
	}
	if g.opts.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: g.opts.System}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Name, contents, config)
	if err != nil {
		return "", fmt.Errorf("llm: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("llm: empty response from model %s", g.opts.Name)
	}
	return text, nil
}

var _ Model = (*Gemini)(nil)
