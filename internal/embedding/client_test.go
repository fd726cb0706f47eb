package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// countingGenerator wraps MockGenerator and records every batch it serves.
type countingGenerator struct {
	*MockGenerator
	batches [][]string
	failOn  string
}

func (g *countingGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if g.failOn != "" && t == g.failOn {
			return nil, fmt.Errorf("service rejected %q", t)
		}
	}
	g.batches = append(g.batches, append([]string(nil), texts...))
	return g.MockGenerator.GenerateBatch(ctx, texts)
}

func newCountingClient(t *testing.T, cacheEnabled bool, maxBatch int) (*Client, *countingGenerator) {
	t.Helper()
	gen := &countingGenerator{MockGenerator: NewMockGenerator(8)}
	cache := NewCache(cacheEnabled, 100, 0)
	return NewClient(gen, cache, ClientConfig{MaxBatchSize: maxBatch}), gen
}

func TestClient_embedRejectsBlankText(t *testing.T) {
	client, _ := newCountingClient(t, true, 16)
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := client.Embed(context.Background(), text); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Embed(%q) error = %v, want ErrEmptyInput", text, err)
		}
	}
}

func TestClient_embedServesFromCache(t *testing.T) {
	client, gen := newCountingClient(t, true, 16)
	ctx := context.Background()

	first, err := client.Embed(ctx, "photosynthesis")
	if err != nil {
		t.Fatal(err)
	}
	second, err := client.Embed(ctx, "photosynthesis")
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.batches) != 1 {
		t.Errorf("generator called %d times, want 1", len(gen.batches))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("cached vector differs from generated vector")
		}
	}
}

func TestClient_embedBatchPreservesOrder(t *testing.T) {
	client, _ := newCountingClient(t, true, 16)
	ctx := context.Background()
	texts := []string{"alpha", "beta", "gamma"}

	vecs, err := client.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, text := range texts {
		want, _ := client.Embed(ctx, text)
		for j := range want {
			if vecs[i][j] != want[j] {
				t.Fatalf("vector %d does not match individual embedding of %q", i, text)
			}
		}
	}
}

func TestClient_embedBatchRejectsBlankElement(t *testing.T) {
	client, gen := newCountingClient(t, true, 16)
	_, err := client.EmbedBatch(context.Background(), []string{"ok", "  ", "also ok"})
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("error = %v, want ErrEmptyInput", err)
	}
	if len(gen.batches) != 0 {
		t.Error("generator must not be called when any input is blank")
	}
}

func TestClient_embedBatchPartitionsBySize(t *testing.T) {
	client, gen := newCountingClient(t, false, 2)
	texts := []string{"a", "b", "c", "d", "e"}
	if _, err := client.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatal(err)
	}
	wantSizes := []int{2, 2, 1}
	if len(gen.batches) != len(wantSizes) {
		t.Fatalf("got %d sub-batches, want %d", len(gen.batches), len(wantSizes))
	}
	for i, want := range wantSizes {
		if len(gen.batches[i]) != want {
			t.Errorf("sub-batch %d size = %d, want %d", i, len(gen.batches[i]), want)
		}
	}
}

func TestClient_embedBatchServesCacheHitsWithoutRequest(t *testing.T) {
	client, gen := newCountingClient(t, true, 16)
	ctx := context.Background()

	if _, err := client.Embed(ctx, "cached"); err != nil {
		t.Fatal(err)
	}
	gen.batches = nil

	if _, err := client.EmbedBatch(ctx, []string{"cached", "fresh"}); err != nil {
		t.Fatal(err)
	}
	if len(gen.batches) != 1 || len(gen.batches[0]) != 1 || gen.batches[0][0] != "fresh" {
		t.Errorf("generator batches = %v, want only [fresh]", gen.batches)
	}
}

func TestClient_embedBatchFailFast(t *testing.T) {
	client, gen := newCountingClient(t, false, 16)
	gen.failOn = "poison"
	vecs, err := client.EmbedBatch(context.Background(), []string{"fine", "poison"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("error = %v, want ErrGenerationFailed", err)
	}
	if vecs != nil {
		t.Error("no partial result on failure")
	}
}

// wrongDimGenerator returns vectors shorter than its declared dimension.
type wrongDimGenerator struct {
	*MockGenerator
}

func (g *wrongDimGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := g.MockGenerator.GenerateBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range vecs {
		vecs[i] = vecs[i][:len(vecs[i])-1]
	}
	return vecs, nil
}

func TestClient_rejectsDimensionMismatchFromService(t *testing.T) {
	gen := &wrongDimGenerator{MockGenerator: NewMockGenerator(8)}
	client := NewClient(gen, nil, ClientConfig{})
	_, err := client.Embed(context.Background(), "text")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("error = %v, want ErrGenerationFailed", err)
	}
}

func TestClient_nilCacheBehavesDisabled(t *testing.T) {
	gen := &countingGenerator{MockGenerator: NewMockGenerator(8)}
	client := NewClient(gen, nil, ClientConfig{})
	ctx := context.Background()
	if _, err := client.Embed(ctx, "text"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Embed(ctx, "text"); err != nil {
		t.Fatal(err)
	}
	if len(gen.batches) != 2 {
		t.Errorf("generator called %d times, want 2 (no caching)", len(gen.batches))
	}
}
