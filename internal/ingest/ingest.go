package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/studyforge/recall/internal/config"
	"github.com/studyforge/recall/internal/embedding"
	"github.com/studyforge/recall/internal/extract"
	"github.com/studyforge/recall/internal/models"
	"github.com/studyforge/recall/internal/storage"
	"go.uber.org/zap"
)

// ErrTextTooShort is returned when a document's text is below the configured minimum.
var ErrTextTooShort = errors.New("document text too short")

// DocumentInput is the input for ingesting a document.
type DocumentInput struct {
	ID             string             `json:"id,omitempty"`
	Title          string             `json:"title"`
	Text           string             `json:"text"`
	FileKind       models.FileKind    `json:"file_kind,omitempty"`
	SourceFileName string             `json:"source_file_name,omitempty"`
	FileSizeBytes  int64              `json:"file_size_bytes,omitempty"`
	Subject        string             `json:"subject,omitempty"`
	Author         string             `json:"author,omitempty"`
	Tags           []string           `json:"tags,omitempty"`
	Difficulty     models.Difficulty  `json:"difficulty,omitempty"`
	ContentType    models.ContentType `json:"content_type,omitempty"`
	OwnerID        string             `json:"owner_id,omitempty"`
}

// Pipeline orchestrates chunking, embedding, and persistence for one document.
// Any failure at any stage aborts the whole ingestion; nothing partial is
// persisted (the store's Create is all-or-nothing).
type Pipeline struct {
	store     storage.Store
	embedder  *embedding.Client
	chunker   *Chunker
	extractor *extract.Extractor
	config    *config.IngestConfig
	logger    *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for debug output (chunk counts, timings).
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates an ingestion pipeline. extractor may be nil when only
// direct-text ingestion is needed.
func NewPipeline(
	store storage.Store,
	embedder *embedding.Client,
	extractor *extract.Extractor,
	cfg *config.IngestConfig,
	opts ...PipelineOption,
) (*Pipeline, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		extractor: extractor,
		config:    cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// IngestText ingests a document whose text is already available: validate,
// chunk, embed every chunk in index order, and store atomically.
func (p *Pipeline) IngestText(ctx context.Context, input *DocumentInput) (*models.Document, error) {
	if len(input.Text) < p.config.MinTextLength {
		return nil, fmt.Errorf("%w: %d characters, minimum is %d",
			ErrTextTooShort, len(input.Text), p.config.MinTextLength)
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	if input.FileKind == "" {
		input.FileKind = models.FileKindDirectText
	}

	doc := &models.Document{
		ID:               input.ID,
		Title:            input.Title,
		SourceFileName:   input.SourceFileName,
		FileKind:         input.FileKind,
		FileSizeBytes:    input.FileSizeBytes,
		Subject:          input.Subject,
		Author:           input.Author,
		Tags:             dedupeTags(input.Tags),
		Difficulty:       input.Difficulty,
		ContentType:      input.ContentType,
		OwnerID:          input.OwnerID,
		FullText:         input.Text,
		EmbeddingModelID: p.embedder.ModelID(),
	}
	if err := doc.Validate(p.config.MinTextLength); err != nil {
		return nil, err
	}

	spans := p.chunker.Chunk(doc.FullText)
	texts := make([]string, len(spans))
	for i, sp := range spans {
		texts[i] = sp.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
	}

	chunks := make([]*models.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = &models.Chunk{
			DocumentID:  doc.ID,
			ChunkIndex:  i,
			Text:        sp.Text,
			Embedding:   embeddings[i],
			StartOffset: sp.StartOffset,
			EndOffset:   sp.EndOffset,
		}
	}

	doc.ProcessedAt = time.Now()
	if _, err := p.store.Create(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}
	if p.logger != nil {
		p.logger.Debug("document ingested",
			zap.String("id", doc.ID),
			zap.Int("chunks", len(chunks)))
	}
	return doc, nil
}

// IngestFile extracts the file at path and ingests it. The file kind is taken
// from input.FileKind when set, otherwise derived from the extension. Text
// and FileSizeBytes always come from the file; SourceFileName and Title fall
// back to the path's base name when unset.
func (p *Pipeline) IngestFile(ctx context.Context, path string, input *DocumentInput) (*models.Document, error) {
	if p.extractor == nil {
		return nil, fmt.Errorf("no extractor configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	kind := input.FileKind
	if kind == "" {
		var ok bool
		kind, ok = models.FileKindForExtension(filepath.Ext(path))
		if !ok {
			return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
		}
	}
	text, err := p.extractor.ExtractFile(path, kind)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	if input.SourceFileName == "" {
		input.SourceFileName = filepath.Base(path)
	}
	if input.Title == "" {
		input.Title = input.SourceFileName
	}
	input.Text = text
	input.FileKind = kind
	input.FileSizeBytes = info.Size()
	return p.IngestText(ctx, input)
}

// Delete removes a document and its chunks. Returns false when id was absent.
// Kept on the pipeline so the server and watcher share one write path.
func (p *Pipeline) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := p.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if deleted && p.logger != nil {
		p.logger.Debug("document deleted", zap.String("id", id))
	}
	return deleted, nil
}

// dedupeTags preserves order while dropping duplicates.
func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
