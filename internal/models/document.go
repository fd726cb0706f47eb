// Package models defines core data structures for documents, chunks, queries, and search results.
package models

import (
	"fmt"
	"time"
)

// FileKind identifies the original format a document's text was extracted from.
type FileKind string

const (
	FileKindPDF        FileKind = "pdf"
	FileKindPlainText  FileKind = "plain_text"
	FileKindWord       FileKind = "word"
	FileKindMarkdown   FileKind = "markdown"
	FileKindDirectText FileKind = "direct_text"
)

// Valid reports whether k is a known file kind.
func (k FileKind) Valid() bool {
	switch k {
	case FileKindPDF, FileKindPlainText, FileKindWord, FileKindMarkdown, FileKindDirectText:
		return true
	}
	return false
}

// FileKindForExtension maps a file extension (with or without leading dot) to a FileKind.
// Returns false for unsupported extensions.
func FileKindForExtension(ext string) (FileKind, bool) {
	switch normalizeExt(ext) {
	case "pdf":
		return FileKindPDF, true
	case "txt", "text", "rst":
		return FileKindPlainText, true
	case "docx", "doc":
		return FileKindWord, true
	case "md", "markdown":
		return FileKindMarkdown, true
	}
	return "", false
}

func normalizeExt(ext string) string {
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	out := make([]byte, len(ext))
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Difficulty is the self-reported difficulty of a document's material.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty. Empty is allowed (unset).
func (d Difficulty) Valid() bool {
	switch d {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ContentType classifies what kind of study material a document holds.
type ContentType string

const (
	ContentTypeNotes     ContentType = "notes"
	ContentTypeExam      ContentType = "exam"
	ContentTypeSummary   ContentType = "summary"
	ContentTypeExercise  ContentType = "exercise"
	ContentTypeReference ContentType = "reference"
)

// Valid reports whether c is a known content type. Empty is allowed (unset).
func (c ContentType) Valid() bool {
	switch c {
	case "", ContentTypeNotes, ContentTypeExam, ContentTypeSummary, ContentTypeExercise, ContentTypeReference:
		return true
	}
	return false
}

// Document represents a stored document with its extracted text and metadata.
// FullText and chunks are immutable after creation; only the metadata fields
// covered by DocumentUpdate may change.
type Document struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	SourceFileName   string      `json:"source_file_name,omitempty"`
	FileKind         FileKind    `json:"file_kind"`
	FileSizeBytes    int64       `json:"file_size_bytes,omitempty"`
	Subject          string      `json:"subject,omitempty"`
	Author           string      `json:"author,omitempty"`
	Tags             []string    `json:"tags,omitempty"`
	Difficulty       Difficulty  `json:"difficulty,omitempty"`
	ContentType      ContentType `json:"content_type,omitempty"`
	OwnerID          string      `json:"owner_id,omitempty"`
	FullText         string      `json:"full_text,omitempty"`
	EmbeddingModelID string      `json:"embedding_model_id"`
	CreatedAt        time.Time   `json:"created_at"`
	ProcessedAt      time.Time   `json:"processed_at,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// Chunks is populated only when requested on the read path.
	Chunks []*Chunk `json:"chunks,omitempty"`
}

// Validate checks required fields and enum values. minTextLen is the configured
// minimum length for FullText.
func (d *Document) Validate(minTextLen int) error {
	if d.Title == "" {
		return fmt.Errorf("%w: document title is required", ErrInvalidArgument)
	}
	if !d.FileKind.Valid() {
		return fmt.Errorf("%w: unknown file kind %q", ErrInvalidArgument, d.FileKind)
	}
	if !d.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidArgument, d.Difficulty)
	}
	if !d.ContentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidArgument, d.ContentType)
	}
	if len(d.FullText) < minTextLen {
		return fmt.Errorf("%w: full text has %d characters, minimum is %d", ErrInvalidArgument, len(d.FullText), minTextLen)
	}
	return nil
}

// MetadataOnly returns a copy of the document without FullText and chunks,
// for embedding into search results and list responses.
func (d *Document) MetadataOnly() *Document {
	c := *d
	c.FullText = ""
	c.Chunks = nil
	return &c
}

// Chunk is a bounded, offset-tracked slice of a document's text with its embedding.
// Chunks are created in bulk at ingestion time and never mutated.
type Chunk struct {
	DocumentID  string    `json:"document_id"`
	ChunkIndex  int       `json:"chunk_index"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"-"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
}

// DocumentUpdate carries a partial update of a document's mutable metadata.
// Nil fields are left unchanged.
type DocumentUpdate struct {
	Title       *string      `json:"title,omitempty"`
	Subject     *string      `json:"subject,omitempty"`
	Author      *string      `json:"author,omitempty"`
	Tags        *[]string    `json:"tags,omitempty"`
	Difficulty  *Difficulty  `json:"difficulty,omitempty"`
	ContentType *ContentType `json:"content_type,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u *DocumentUpdate) Empty() bool {
	return u.Title == nil && u.Subject == nil && u.Author == nil &&
		u.Tags == nil && u.Difficulty == nil && u.ContentType == nil
}

// Validate checks enum values on the fields that are set.
func (u *DocumentUpdate) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return fmt.Errorf("%w: title cannot be set to empty", ErrInvalidArgument)
	}
	if u.Difficulty != nil && !u.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidArgument, *u.Difficulty)
	}
	if u.ContentType != nil && !u.ContentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidArgument, *u.ContentType)
	}
	return nil
}

// Filters are equality matches applied to indexed document metadata.
// Zero-value fields are ignored.
type Filters struct {
	Subject     string      `json:"subject,omitempty"`
	Author      string      `json:"author,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
	Difficulty  Difficulty  `json:"difficulty,omitempty"`
	OwnerID     string      `json:"owner_id,omitempty"`
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f == Filters{}
}
