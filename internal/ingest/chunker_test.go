package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestNewChunker_rejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if !errors.Is(err, ErrInvalidChunkParams) {
				t.Errorf("NewChunker(%d, %d) error = %v, want ErrInvalidChunkParams", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestChunker_overlappingWindows(t *testing.T) {
	c, err := NewChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("A", 250)
	spans := c.Chunk(text)

	wantStarts := []int{0, 80, 160, 240}
	wantEnds := []int{100, 180, 250, 250}
	if len(spans) != len(wantStarts) {
		t.Fatalf("got %d chunks, want %d", len(spans), len(wantStarts))
	}
	for i, sp := range spans {
		if sp.StartOffset != wantStarts[i] {
			t.Errorf("chunk %d start = %d, want %d", i, sp.StartOffset, wantStarts[i])
		}
		if sp.EndOffset != wantEnds[i] {
			t.Errorf("chunk %d end = %d, want %d", i, sp.EndOffset, wantEnds[i])
		}
	}
	if got := len(spans[len(spans)-1].Text); got != 10 {
		t.Errorf("last chunk length = %d, want 10", got)
	}
}

func TestChunker_emitsWindowsAfterFirstClippedWindow(t *testing.T) {
	c, err := NewChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	// The first window already reaches the end of the text; the start at 80
	// is still below len(text) and must produce its own clipped window.
	text := strings.Repeat("A", 100)
	spans := c.Chunk(text)
	if len(spans) != 2 {
		t.Fatalf("got %d chunks, want 2", len(spans))
	}
	if spans[1].StartOffset != 80 || spans[1].EndOffset != 100 {
		t.Errorf("trailing span = [%d, %d), want [80, 100)", spans[1].StartOffset, spans[1].EndOffset)
	}
}

func TestChunker_shortTextSingleChunk(t *testing.T) {
	c, err := NewChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	spans := c.Chunk("short text")
	if len(spans) != 1 {
		t.Fatalf("got %d chunks, want 1", len(spans))
	}
	if spans[0].Text != "short text" || spans[0].StartOffset != 0 || spans[0].EndOffset != 10 {
		t.Errorf("unexpected span: %+v", spans[0])
	}
}

func TestChunker_emptyText(t *testing.T) {
	c, err := NewChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	if spans := c.Chunk(""); spans != nil {
		t.Errorf("Chunk(\"\") = %v, want nil", spans)
	}
}

func TestChunker_dropsWhitespaceOnlyWindows(t *testing.T) {
	c, err := NewChunker(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Second window is all spaces and must be dropped; offsets of the
	// surviving windows still refer to the original text.
	text := "aaaaaaaaaa          bbbbbbbbbb"
	spans := c.Chunk(text)
	if len(spans) != 2 {
		t.Fatalf("got %d chunks, want 2", len(spans))
	}
	if spans[0].Text != "aaaaaaaaaa" || spans[0].StartOffset != 0 {
		t.Errorf("unexpected first span: %+v", spans[0])
	}
	if spans[1].Text != "bbbbbbbbbb" || spans[1].StartOffset != 20 {
		t.Errorf("unexpected second span: %+v", spans[1])
	}
}

func TestChunker_trimsTextButKeepsWindowOffsets(t *testing.T) {
	c, err := NewChunker(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	spans := c.Chunk("  hello   ")
	if len(spans) != 1 {
		t.Fatalf("got %d chunks, want 1", len(spans))
	}
	if spans[0].Text != "hello" {
		t.Errorf("text = %q, want %q", spans[0].Text, "hello")
	}
	if spans[0].StartOffset != 0 || spans[0].EndOffset != 10 {
		t.Errorf("offsets = [%d, %d), want [0, 10)", spans[0].StartOffset, spans[0].EndOffset)
	}
}

func TestChunker_startsStrictlyIncrease(t *testing.T) {
	c, err := NewChunker(50, 25)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("abcdefghij", 60)
	spans := c.Chunk(text)
	for i := 1; i < len(spans); i++ {
		if spans[i].StartOffset <= spans[i-1].StartOffset {
			t.Fatalf("chunk %d start %d not greater than previous %d", i, spans[i].StartOffset, spans[i-1].StartOffset)
		}
	}
	if last := spans[len(spans)-1]; last.EndOffset != len(text) {
		t.Errorf("final chunk end = %d, want %d", last.EndOffset, len(text))
	}
}
