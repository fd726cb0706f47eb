package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/studyforge/recall/internal/config"
	"github.com/studyforge/recall/internal/embedding"
	"github.com/studyforge/recall/internal/extract"
	"github.com/studyforge/recall/internal/models"
	"github.com/studyforge/recall/internal/storage"
)

func newTestPipeline(t *testing.T) (*Pipeline, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	client := embedding.NewClient(embedding.NewMockGenerator(8), nil, embedding.ClientConfig{})
	cfg := &config.IngestConfig{ChunkSize: 100, ChunkOverlap: 20, MinTextLength: 50}
	pipeline, err := NewPipeline(store, client, extract.NewExtractor(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	return pipeline, store
}

func TestIngestText_rejectsShortText(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	_, err := pipeline.IngestText(context.Background(), &DocumentInput{
		Title: "too short",
		Text:  "tiny",
	})
	if !errors.Is(err, ErrTextTooShort) {
		t.Errorf("error = %v, want ErrTextTooShort", err)
	}
}

func TestIngestText_storesDocumentAndChunks(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	ctx := context.Background()

	text := strings.Repeat("A", 250)
	doc, err := pipeline.IngestText(ctx, &DocumentInput{
		Title:       "As",
		Text:        text,
		Subject:     "biology",
		Difficulty:  models.DifficultyEasy,
		ContentType: models.ContentTypeNotes,
		Tags:        []string{"one", "two", "one"},
	})
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if doc.ID == "" {
		t.Error("document should get a generated ID")
	}
	if doc.FileKind != models.FileKindDirectText {
		t.Errorf("file kind = %q, want direct_text", doc.FileKind)
	}
	if doc.EmbeddingModelID != "mock" {
		t.Errorf("embedding model = %q, want mock", doc.EmbeddingModelID)
	}
	if doc.ProcessedAt.IsZero() {
		t.Error("ProcessedAt should be stamped")
	}
	if !reflect.DeepEqual(doc.Tags, []string{"one", "two"}) {
		t.Errorf("tags = %v, want deduplicated [one two]", doc.Tags)
	}

	stored, err := store.Get(ctx, doc.ID, storage.GetOptions{IncludeChunks: true, IncludeEmbeddings: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Chunks) != 4 {
		t.Fatalf("got %d chunks, want 4 (250 chars, size 100, overlap 20)", len(stored.Chunks))
	}
	wantStarts := []int{0, 80, 160, 240}
	for i, ch := range stored.Chunks {
		if ch.StartOffset != wantStarts[i] {
			t.Errorf("chunk %d start = %d, want %d", i, ch.StartOffset, wantStarts[i])
		}
		if len(ch.Embedding) != 8 {
			t.Errorf("chunk %d embedding dimension = %d, want 8", i, len(ch.Embedding))
		}
	}
}

func TestIngestText_honorsProvidedID(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	ctx := context.Background()
	text := strings.Repeat("notes about the cell membrane. ", 5)

	doc, err := pipeline.IngestText(ctx, &DocumentInput{ID: "my-id", Title: "t", Text: text})
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "my-id" {
		t.Errorf("ID = %q, want my-id", doc.ID)
	}

	// Re-ingesting the same ID replaces, not duplicates.
	if _, err := pipeline.IngestText(ctx, &DocumentInput{ID: "my-id", Title: "t2", Text: text}); err != nil {
		t.Fatal(err)
	}
	n, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountDocuments = %d, want 1", n)
	}
}

func TestIngestText_rejectsInvalidMetadata(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	text := strings.Repeat("long enough text for the minimum. ", 3)
	_, err := pipeline.IngestText(context.Background(), &DocumentInput{
		Title:      "t",
		Text:       text,
		Difficulty: "impossible",
	})
	if !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestIngestFile_plainText(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := strings.Repeat("Mitochondria are the powerhouse of the cell. ", 4)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	doc, err := pipeline.IngestFile(ctx, path, &DocumentInput{Subject: "biology"})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if doc.Title != "notes.txt" {
		t.Errorf("title = %q, want notes.txt", doc.Title)
	}
	if doc.FileKind != models.FileKindPlainText {
		t.Errorf("file kind = %q, want plain_text", doc.FileKind)
	}
	if doc.SourceFileName != "notes.txt" {
		t.Errorf("source file name = %q", doc.SourceFileName)
	}
	if doc.FileSizeBytes != int64(len(content)) {
		t.Errorf("file size = %d, want %d", doc.FileSizeBytes, len(content))
	}

	stored, err := store.Get(ctx, doc.ID, storage.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if stored.Subject != "biology" {
		t.Errorf("subject = %q, want biology", stored.Subject)
	}
}

func TestIngestFile_unsupportedExtension(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	if err := os.WriteFile(path, []byte{0x89, 0x50}, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := pipeline.IngestFile(context.Background(), path, &DocumentInput{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestDelete(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	ctx := context.Background()
	text := strings.Repeat("some study notes to remember later. ", 3)

	doc, err := pipeline.IngestText(ctx, &DocumentInput{Title: "t", Text: text})
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := pipeline.Delete(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Error("Delete should report true")
	}
	deleted, err = pipeline.Delete(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Error("second Delete should report false")
	}
}

func TestDedupeTags(t *testing.T) {
	got := dedupeTags([]string{"b", "a", "b", "c", "a"})
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dedupeTags = %v, want %v", got, want)
	}
	if dedupeTags(nil) != nil {
		t.Error("nil tags stay nil")
	}
}
