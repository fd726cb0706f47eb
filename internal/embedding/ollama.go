package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaGenerator produces embeddings from a local or remote Ollama server.
type OllamaGenerator struct {
	llm        *ollama.LLM
	model      string
	dimensions int
}

// NewOllamaGenerator connects to the Ollama server at serverURL using model.
// dimensions is the fixed vector length the model produces.
func NewOllamaGenerator(serverURL, model string, dimensions int) (*OllamaGenerator, error) {
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to ollama: %w", err)
	}
	return &OllamaGenerator{llm: llm, model: model, dimensions: dimensions}, nil
}

// Generate embeds a single text.
func (g *OllamaGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateBatch embeds texts in one request, preserving order.
func (g *OllamaGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := g.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("ollama embedding: requested %d vectors, got %d", len(texts), len(vecs))
	}
	return vecs, nil
}

// Dimensions returns the configured vector length.
func (g *OllamaGenerator) Dimensions() int { return g.dimensions }

// ModelID returns the Ollama model name.
func (g *OllamaGenerator) ModelID() string { return g.model }

// Close is a no-op; the underlying HTTP client needs no teardown.
func (g *OllamaGenerator) Close() error { return nil }
