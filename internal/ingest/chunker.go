// Package ingest provides document chunking and the ingestion pipeline.
package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChunkParams is returned for non-positive sizes or overlap >= size.
var ErrInvalidChunkParams = errors.New("invalid chunk parameters")

// ChunkSpan is one window of text with its byte offsets into the original text.
// Offsets bound the pre-trim window: Text is trimmed of surrounding whitespace
// but StartOffset/EndOffset still refer to the untrimmed slice.
type ChunkSpan struct {
	Text        string
	StartOffset int
	EndOffset   int
}

// Chunker splits text into overlapping fixed-size windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given window size and overlap, in bytes.
// chunkSize must be positive and chunkOverlap must satisfy 0 <= overlap < size;
// otherwise ErrInvalidChunkParams is returned.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkParams, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidChunkParams, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidChunkParams, chunkOverlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk splits text into windows starting at 0, size-overlap, 2*(size-overlap), ...
// for every start below len(text); windows are clipped to the end of the text.
// Windows whose trimmed text is empty are dropped. Deterministic and
// side-effect free.
func (c *Chunker) Chunk(text string) []ChunkSpan {
	if len(text) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	spans := make([]ChunkSpan, 0, (len(text)+step-1)/step)
	for start := 0; start < len(text); start += step {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		trimmed := strings.TrimSpace(text[start:end])
		if trimmed != "" {
			spans = append(spans, ChunkSpan{
				Text:        trimmed,
				StartOffset: start,
				EndOffset:   end,
			})
		}
	}
	return spans
}
