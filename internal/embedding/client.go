package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClientConfig configures the embedding client.
type ClientConfig struct {
	// MaxBatchSize caps the number of texts per generation-service request.
	MaxBatchSize int
	// RequestTimeout bounds each call to the generation service.
	RequestTimeout time.Duration
}

// Client wraps a Generator with cache lookups and request batching. It is
// fail-fast: generation errors surface as ErrGenerationFailed with the cause
// and are never retried here (retry policy belongs to the caller).
type Client struct {
	generator Generator
	cache     *Cache
	config    ClientConfig
	logger    *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for debug output (cache hits, batch sizes).
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client over the given generator and cache.
// cache may be nil, which behaves like a disabled cache.
func NewClient(generator Generator, cache *Cache, cfg ClientConfig, opts ...ClientOption) *Client {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 16
	}
	if cache == nil {
		cache = NewCache(false, 1, 0)
	}
	c := &Client{generator: generator, cache: cache, config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dimensions returns the generator's fixed vector length.
func (c *Client) Dimensions() int { return c.generator.Dimensions() }

// ModelID returns the generator's model identifier.
func (c *Client) ModelID() string { return c.generator.ModelID() }

// Close releases the underlying generator.
func (c *Client) Close() error { return c.generator.Close() }

// Embed returns the embedding for text, serving from the cache when possible.
// Blank text is rejected with ErrEmptyInput.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if vec, ok := c.cache.Get(text); ok {
		if c.logger != nil {
			c.logger.Debug("embedding cache hit")
		}
		return vec, nil
	}
	vecs, err := c.generate(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	c.cache.Put(text, vecs[0])
	return vecs[0], nil
}

// EmbedBatch embeds texts preserving order and length. Cached texts are served
// without contacting the generation service; the misses are partitioned into
// sub-batches of at most MaxBatchSize. A failure in any sub-batch fails the
// whole call with no partial result.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d of %d is blank", ErrEmptyInput, i, len(texts))
		}
		if vec, ok := c.cache.Get(text); ok {
			result[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if c.logger != nil {
		c.logger.Debug("embedding batch",
			zap.Int("texts", len(texts)),
			zap.Int("cache_hits", len(texts)-len(missTexts)))
	}
	for start := 0; start < len(missTexts); start += c.config.MaxBatchSize {
		end := start + c.config.MaxBatchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		vecs, err := c.generate(ctx, missTexts[start:end])
		if err != nil {
			return nil, err
		}
		for i, vec := range vecs {
			c.cache.Put(missTexts[start+i], vec)
			result[missIdx[start+i]] = vec
		}
	}
	return result, nil
}

// generate calls the generation service once under the configured timeout and
// validates the response shape.
func (c *Client) generate(ctx context.Context, texts []string) ([][]float32, error) {
	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}
	vecs, err := c.generator.GenerateBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d", ErrGenerationFailed, len(texts), len(vecs))
	}
	want := c.generator.Dimensions()
	for i, vec := range vecs {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", ErrGenerationFailed, i)
		}
		if want > 0 && len(vec) != want {
			return nil, fmt.Errorf("%w: embedding at position %d has dimension %d, expected %d",
				ErrGenerationFailed, i, len(vec), want)
		}
	}
	return vecs, nil
}
