// Package storage defines the persistence interface for documents and chunks.
package storage

import (
	"context"
	"errors"

	"github.com/studyforge/recall/internal/models"
)

// ErrNotFound is returned by operations addressed to a missing document id.
var ErrNotFound = errors.New("document not found")

// GetOptions controls what Get loads alongside the document row.
type GetOptions struct {
	// IncludeChunks loads the document's chunks ordered by chunk index.
	IncludeChunks bool
	// IncludeEmbeddings decodes the embedding blobs; only meaningful with
	// IncludeChunks. The display read path leaves them out.
	IncludeEmbeddings bool
}

// ChunkRecord is one row of the similarity scan: a chunk joined with its
// owning document's metadata (no full text).
type ChunkRecord struct {
	DocumentID string
	ChunkIndex int
	Text       string
	Embedding  []float32
	Document   *models.Document
}

// Store provides durable persistence for documents and their chunks.
type Store interface {
	// Create atomically writes the document and all its chunks. An existing
	// document with the same id is replaced wholesale (upsert). Returns the
	// assigned document id.
	Create(ctx context.Context, doc *models.Document, chunks []*models.Chunk) (string, error)

	// Get returns the document, or ErrNotFound.
	Get(ctx context.Context, id string, opts GetOptions) (*models.Document, error)

	// Update applies a partial metadata update and bumps updated_at.
	// Returns ErrNotFound when id is absent.
	Update(ctx context.Context, id string, update *models.DocumentUpdate) (*models.Document, error)

	// Delete removes the document and all its chunks in one atomic unit.
	// Returns false, not an error, when id was absent.
	Delete(ctx context.Context, id string) (bool, error)

	// List returns a page of documents (without full text), newest first,
	// plus the total count matching the filters.
	List(ctx context.Context, page, pageSize int, filters models.Filters) ([]*models.Document, int, error)

	// ScanChunks streams every chunk matching the filters to fn, joined with
	// document metadata. Scanning stops at the first error from fn or the scan.
	ScanChunks(ctx context.Context, filters models.Filters, fn func(*ChunkRecord) error) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
