package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIGenerator produces embeddings from the OpenAI API (or any
// OpenAI-compatible endpoint via baseURL).
type OpenAIGenerator struct {
	llm        *openai.LLM
	model      string
	dimensions int
}

// NewOpenAIGenerator creates a generator using the key from apiKeyEnv.
// baseURL may be empty for the default API endpoint.
func NewOpenAIGenerator(baseURL, apiKeyEnv, model string, dimensions int) (*OpenAIGenerator, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", apiKeyEnv)
	}
	opts := []openai.Option{
		openai.WithToken(key),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to openai: %w", err)
	}
	return &OpenAIGenerator{llm: llm, model: model, dimensions: dimensions}, nil
}

// Generate embeds a single text.
func (g *OpenAIGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateBatch embeds texts in one request, preserving order.
func (g *OpenAIGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := g.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("openai embedding: requested %d vectors, got %d", len(texts), len(vecs))
	}
	return vecs, nil
}

// Dimensions returns the configured vector length.
func (g *OpenAIGenerator) Dimensions() int { return g.dimensions }

// ModelID returns the embedding model name.
func (g *OpenAIGenerator) ModelID() string { return g.model }

// Close is a no-op; the underlying HTTP client needs no teardown.
func (g *OpenAIGenerator) Close() error { return nil }
