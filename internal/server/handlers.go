package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/studyforge/recall/internal/embedding"
	"github.com/studyforge/recall/internal/ingest"
	"github.com/studyforge/recall/internal/models"
	"github.com/studyforge/recall/internal/search"
	"github.com/studyforge/recall/internal/storage"
	"go.uber.org/zap"
)

// maxUploadBytes caps multipart uploads held in memory before spilling to disk.
const maxUploadBytes = 64 << 20

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var input ingest.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("create document request", zap.String("title", input.Title))
	doc, err := s.pipeline.IngestText(r.Context(), &input)
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, doc.MetadataOnly())
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	// IngestFile reads from a path, so spool the upload to a temp file with
	// the original extension intact for file-kind detection.
	tmp, err := os.CreateTemp("", "recall-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.ReadFrom(file); err != nil {
		_ = tmp.Close()
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := tmp.Close(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	input := ingest.DocumentInput{
		Title:          r.FormValue("title"),
		SourceFileName: header.Filename,
		Subject:        r.FormValue("subject"),
		Author:         r.FormValue("author"),
		Difficulty:     models.Difficulty(r.FormValue("difficulty")),
		ContentType:    models.ContentType(r.FormValue("content_type")),
		OwnerID:        r.FormValue("owner_id"),
	}
	if tags := r.FormValue("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				input.Tags = append(input.Tags, t)
			}
		}
	}

	s.logger.Debug("upload document request",
		zap.String("filename", header.Filename), zap.Int64("size", header.Size))
	doc, err := s.pipeline.IngestFile(r.Context(), tmpPath, &input)
	if err != nil {
		s.logger.Error("file ingestion failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, doc.MetadataOnly())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	filters := models.Filters{
		Subject:     r.URL.Query().Get("subject"),
		Author:      r.URL.Query().Get("author"),
		ContentType: models.ContentType(r.URL.Query().Get("content_type")),
		Difficulty:  models.Difficulty(r.URL.Query().Get("difficulty")),
		OwnerID:     r.URL.Query().Get("owner_id"),
	}
	docs, total, err := s.store.List(r.Context(), page, pageSize, filters)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	opts := storage.GetOptions{
		IncludeChunks:     queryBool(r, "include_chunks"),
		IncludeEmbeddings: queryBool(r, "include_embeddings"),
	}
	doc, err := s.store.Get(r.Context(), id, opts)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var update models.DocumentUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("update document request", zap.String("id", id))
	doc, err := s.store.Update(r.Context(), id, &update)
	if err != nil {
		s.logger.Error("update failed", zap.Error(err), zap.String("id", id))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	deleted, err := s.pipeline.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err), zap.String("id", id))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if !deleted {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.store.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.store.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
		"config": map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_model":      s.config.Embedding.Model,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"chunk_size":           s.config.Ingest.ChunkSize,
			"chunk_overlap":        s.config.Ingest.ChunkOverlap,
			"cache_enabled":        s.config.Embedding.Cache.EnabledOrDefault(),
			"database_path":        s.config.Storage.DatabasePath,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, ingest.ErrTextTooShort),
		errors.Is(err, embedding.ErrEmptyInput),
		errors.Is(err, search.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, embedding.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
