package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/studyforge/recall/internal/config"
	"github.com/studyforge/recall/internal/embedding"
	"github.com/studyforge/recall/internal/models"
	"github.com/studyforge/recall/internal/storage"
	"go.uber.org/zap"
)

// Engine answers similarity queries by exhaustively scanning stored chunk
// vectors. Runtime is linear in the number of chunks matching the filters;
// exactness over sub-linear time is the design point here. An index can be
// layered behind the same Search contract later.
type Engine struct {
	store    storage.Store
	embedder *embedding.Client
	config   *config.SearchConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output (scan sizes, timings).
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine over the given store and embedding client.
func NewEngine(store storage.Store, embedder *embedding.Client, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{store: store, embedder: embedder, config: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search validates the query, embeds the query text when no raw vector was
// supplied, and returns the ranked results. Failure to embed the query aborts
// the search.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(models.QueryDefaults{
		Limit:     e.config.DefaultLimit,
		MaxLimit:  e.config.MaxLimit,
		Threshold: e.config.DefaultThreshold,
	}); err != nil {
		return nil, err
	}

	vec := query.Vector
	if len(vec) == 0 {
		var err error
		vec, err = e.embedder.Embed(ctx, query.Query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
	}

	results, total, err := e.Rank(ctx, vec, *query.Threshold, query.Limit, query.Filters)
	if err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.Debug("search complete",
			zap.Int("results", len(results)),
			zap.Duration("elapsed", time.Since(startTime)))
	}
	return &models.SearchResponse{
		Results:   results,
		Total:     total,
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
	}, nil
}

// Rank scores every chunk matching the filters against queryVec, keeps those
// at or above threshold, sorts by similarity descending with ties broken by
// (documentID, chunkIndex) ascending, and truncates to limit. The second
// return value is the qualifying count before truncation. A scan or scoring
// error aborts the whole search; no partial ranking is returned.
func (e *Engine) Rank(ctx context.Context, queryVec []float32, threshold float64, limit int, filters models.Filters) ([]*models.SearchResult, int, error) {
	var scored []*models.SearchResult
	scanned := 0
	err := e.store.ScanChunks(ctx, filters, func(rec *storage.ChunkRecord) error {
		scanned++
		sim, err := Cosine(queryVec, rec.Embedding)
		if err != nil {
			return fmt.Errorf("document %s chunk %d: %w", rec.DocumentID, rec.ChunkIndex, err)
		}
		if sim < threshold {
			return nil
		}
		scored = append(scored, &models.SearchResult{
			DocumentID: rec.DocumentID,
			ChunkIndex: rec.ChunkIndex,
			Text:       rec.Text,
			Similarity: sim,
			Document:   rec.Document,
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		if scored[i].DocumentID != scored[j].DocumentID {
			return scored[i].DocumentID < scored[j].DocumentID
		}
		return scored[i].ChunkIndex < scored[j].ChunkIndex
	})

	total := len(scored)
	if limit < len(scored) {
		scored = scored[:limit]
	}
	for i, r := range scored {
		r.Rank = i + 1
	}
	if e.logger != nil {
		e.logger.Debug("ranked chunks", zap.Int("scanned", scanned), zap.Int("qualifying", total))
	}
	return scored, total, nil
}
