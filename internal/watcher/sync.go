package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/studyforge/recall/internal/ingest"
	"go.uber.org/zap"
)

const fileIDPrefix = "file:"

// FileDocID returns a stable document ID for the given absolute path, so a
// rewritten file replaces its earlier ingestion and a removed file can be
// deleted by path alone.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return fileIDPrefix + hex.EncodeToString(hash[:])
}

const ingestTimeout = 5 * time.Minute

// NewPipelineWatcher wires a Watcher to the ingestion pipeline: file writes
// under the roots are ingested under a path-derived document ID, removals
// delete that document.
func NewPipelineWatcher(pipeline *ingest.Pipeline, roots, extensions []string, recursive bool, logger *zap.Logger) *Watcher {
	onIngest := func(path string) {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		input := &ingest.DocumentInput{ID: FileDocID(path)}
		if _, err := pipeline.IngestFile(ctx, path, input); err != nil {
			logger.Warn("watched file ingestion failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("watched file ingested", zap.String("path", path))
	}
	onRemove := func(path string) {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		deleted, err := pipeline.Delete(ctx, FileDocID(path))
		if err != nil {
			logger.Warn("watched file delete failed", zap.String("path", path), zap.Error(err))
			return
		}
		if deleted {
			logger.Info("watched file document removed", zap.String("path", path))
		}
	}
	return NewWatcher(roots, extensions, recursive, onIngest, onRemove, WithLogger(logger))
}
