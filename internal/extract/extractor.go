// Package extract provides text extraction from uploaded document files.
package extract

import (
	"fmt"
	"os"

	"github.com/studyforge/recall/internal/models"
)

// Extractor extracts plain text from document files by their declared kind.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFile reads the file at path and returns its text content for the
// declared kind.
func (e *Extractor) ExtractFile(path string, kind models.FileKind) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.Extract(content, kind)
}

// Extract returns the text content of a raw file of the declared kind.
// Plain text and markdown pass through with UTF-8 validation; direct text is
// not a file kind this extractor accepts.
func (e *Extractor) Extract(content []byte, kind models.FileKind) (string, error) {
	switch kind {
	case models.FileKindPDF:
		return extractPDF(content)
	case models.FileKindWord:
		return extractDOCX(content)
	case models.FileKindPlainText, models.FileKindMarkdown:
		return extractPlain(content)
	default:
		return "", fmt.Errorf("cannot extract text for file kind %q", kind)
	}
}
