// Package embedding provides the embedding client, cache, and generation-service adapters.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when text to embed is empty or whitespace-only.
var ErrEmptyInput = errors.New("empty input text")

// ErrGenerationFailed is returned when the embedding-generation service fails
// (timeout, malformed response, empty result). The cause is wrapped; the client
// never retries internally.
var ErrGenerationFailed = errors.New("embedding generation failed")

// Generator is the external embedding-generation collaborator: text in,
// fixed-dimension vector out, or failure. Implementations are expected to be
// safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the fixed length of every vector this generator produces.
	Dimensions() int
	// ModelID identifies the external model, recorded on stored documents.
	ModelID() string
	Close() error
}
