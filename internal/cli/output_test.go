package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/studyforge/recall/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Results: []*models.SearchResult{
			{
				DocumentID: "doc-1",
				ChunkIndex: 2,
				Text:       "the mitochondria is the powerhouse of the cell",
				Similarity: 0.9312,
				Rank:       1,
				Document:   &models.Document{ID: "doc-1", Title: "Cell Biology", Subject: "biology"},
			},
			{
				DocumentID: "doc-2",
				ChunkIndex: 0,
				Text:       "osmosis moves water across membranes",
				Similarity: 0.8041,
				Rank:       2,
			},
		},
		Total:     2,
		QueryTime: 12,
		Query:     "cell energy",
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Found 2 matching chunks in 12ms",
		"Rank: 1 | Similarity: 0.9312 | Chunk: 2",
		"Document: doc-1",
		"Title: Cell Biology",
		"Subject: biology",
		"the mitochondria is the powerhouse of the cell",
		"Rank: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	// The second result has no document, so no Title line for it.
	if strings.Count(out, "Title:") != 1 {
		t.Errorf("expected exactly one Title line:\n%s", out)
	}
}

func TestWriteSearchResults_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 5 {
		t.Fatalf("got %d fields, want 5: %q", len(fields), lines[0])
	}
	if fields[0] != "1" || fields[1] != "0.9312" || fields[2] != "doc-1" || fields[4] != "Cell Biology" {
		t.Errorf("unexpected compact line: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "\t") {
		t.Errorf("missing document should leave an empty title field: %q", lines[1])
	}
}

func TestWriteSearchResults_json(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 2 || decoded.Query != "cell energy" || len(decoded.Results) != 2 {
		t.Errorf("round trip lost data: %+v", decoded)
	}
	if decoded.Results[0].Similarity != 0.9312 {
		t.Errorf("similarity = %v", decoded.Results[0].Similarity)
	}
}

func TestWriteSearchResults_emptyResults(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.SearchResponse{Total: 0, QueryTime: 3}
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 0 matching chunks") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
	buf.Reset()
	if err := WriteSearchResults(&buf, resp, OutputCompact); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("compact output for empty results should be empty, got %q", buf.String())
	}
}
