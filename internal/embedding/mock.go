package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/studyforge/recall/pkg/utils"
)

// MockGenerator is a deterministic generator for tests. It derives a
// unit-length vector from the text hash so the same text always gets the same
// embedding.
type MockGenerator struct {
	dimensions int
}

// NewMockGenerator returns a generator producing deterministic embeddings of
// the given dimension.
func NewMockGenerator(dimensions int) *MockGenerator {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &MockGenerator{dimensions: dimensions}
}

// Generate returns a deterministic normalized embedding based on the text hash.
func (g *MockGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := int(h.Sum32() % 100003)
	vec := make([]float32, g.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(seed*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// GenerateBatch calls Generate for each text.
func (g *MockGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := g.Generate(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (g *MockGenerator) Dimensions() int { return g.dimensions }

// ModelID returns a fixed identifier for the mock model.
func (g *MockGenerator) ModelID() string { return "mock" }

// Close is a no-op.
func (g *MockGenerator) Close() error { return nil }
