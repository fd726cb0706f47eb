package embedding

import (
	"fmt"

	"github.com/studyforge/recall/internal/config"
)

// Provider identifies a generation-service backend.
type Provider string

const (
	// ProviderOllama talks to a local or remote Ollama server.
	ProviderOllama Provider = "ollama"
	// ProviderOpenAI talks to the OpenAI API or a compatible endpoint.
	ProviderOpenAI Provider = "openai"
	// ProviderMock produces deterministic vectors; for tests and local development.
	ProviderMock Provider = "mock"
)

// NewGenerator creates the generation-service adapter selected by cfg.
// Supported providers: "openai" (default), "ollama", "mock".
func NewGenerator(cfg *config.EmbeddingConfig) (Generator, error) {
	switch Provider(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAIGenerator(cfg.ServerURL, cfg.APIKeyEnv, cfg.Model, cfg.Dimensions)
	case ProviderOllama:
		url := cfg.ServerURL
		if url == "" {
			url = "http://localhost:11434"
		}
		return NewOllamaGenerator(url, cfg.Model, cfg.Dimensions)
	case ProviderMock:
		return NewMockGenerator(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama, mock)", cfg.Provider)
	}
}

// NewClientFromConfig builds the caching client and its generator from cfg.
func NewClientFromConfig(cfg *config.EmbeddingConfig, opts ...ClientOption) (*Client, error) {
	gen, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	cache := NewCache(cfg.Cache.EnabledOrDefault(), cfg.Cache.MaxSize, cfg.Cache.TTL())
	return NewClient(gen, cache, ClientConfig{
		MaxBatchSize:   cfg.MaxBatchSize,
		RequestTimeout: cfg.RequestTimeout(),
	}, opts...), nil
}
