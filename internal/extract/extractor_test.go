package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studyforge/recall/internal/models"
)

func TestExtract_plainText(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract([]byte("hello world"), models.FileKindPlainText)
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("got %q", text)
	}
}

func TestExtract_markdownIsPassthrough(t *testing.T) {
	e := NewExtractor()
	src := "# Heading\n\nSome *markdown* text."
	text, err := e.Extract([]byte(src), models.FileKindMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if text != src {
		t.Errorf("markdown should pass through unchanged, got %q", text)
	}
}

func TestExtract_invalidUTF8Replaced(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract([]byte{'o', 'k', 0xff, 0xfe, '!'}, models.FileKindPlainText)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "ok") || !strings.Contains(text, "!") {
		t.Errorf("valid bytes lost: %q", text)
	}
	if strings.ContainsRune(text, 0xff) {
		t.Error("invalid bytes should be replaced")
	}
}

func TestExtract_unsupportedKind(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract([]byte("x"), models.FileKind("spreadsheet")); err == nil {
		t.Error("expected error for unsupported kind")
	}
}

// buildDOCX builds a minimal OOXML zip with the given body runs.
func buildDOCX(t *testing.T, runs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	var body strings.Builder
	body.WriteString(`<?xml version="1.0"?><w:document><w:body><w:p>`)
	for _, r := range runs {
		body.WriteString(`<w:r><w:t xml:space="preserve">` + r + `</w:t></w:r>`)
	}
	body.WriteString(`</w:p></w:body></w:document>`)
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract_wordDocument(t *testing.T) {
	e := NewExtractor()
	content := buildDOCX(t, "Cells divide", "by mitosis.")
	text, err := e.Extract(content, models.FileKindWord)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Cells divide by mitosis." {
		t.Errorf("got %q", text)
	}
}

func TestExtract_wordNotAZip(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract([]byte("plain bytes"), models.FileKindWord); err == nil {
		t.Error("expected error for non-zip content")
	}
}

func TestExtract_wordMissingBody(t *testing.T) {
	e := NewExtractor()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/other.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("<xml/>"))
	_ = zw.Close()
	if _, err := e.Extract(buf.Bytes(), models.FileKindWord); err == nil {
		t.Error("expected error when word/document.xml is absent")
	}
}

func TestExtractFile(t *testing.T) {
	e := NewExtractor()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("## Notes\ncontent"), 0600); err != nil {
		t.Fatal(err)
	}
	text, err := e.ExtractFile(path, models.FileKindMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if text != "## Notes\ncontent" {
		t.Errorf("got %q", text)
	}
}

func TestExtractFile_missingFile(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractFile(filepath.Join(t.TempDir(), "absent.txt"), models.FileKindPlainText); err == nil {
		t.Error("expected error for missing file")
	}
}
