// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/studyforge/recall/internal/models"
)

// SQLiteStore implements Store using SQLite. Embeddings are persisted as
// little-endian float32 blobs, one per chunk row.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_file_name TEXT,
		file_kind TEXT NOT NULL,
		file_size_bytes INTEGER,
		subject TEXT,
		author TEXT,
		tags TEXT,
		difficulty TEXT,
		content_type TEXT,
		owner_id TEXT,
		full_text TEXT NOT NULL,
		embedding_model_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_subject ON documents(subject);
	CREATE INDEX IF NOT EXISTS idx_documents_author ON documents(author);
	CREATE INDEX IF NOT EXISTS idx_documents_content_type ON documents(content_type);
	CREATE INDEX IF NOT EXISTS idx_documents_difficulty ON documents(difficulty);
	CREATE INDEX IF NOT EXISTS idx_documents_owner_id ON documents(owner_id);

	CREATE TABLE IF NOT EXISTS chunks (
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		PRIMARY KEY (document_id, chunk_index),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// validateChunks enforces the schema invariants before anything is written:
// indices form a contiguous range [0, N) and all embeddings share one length.
func validateChunks(docID string, chunks []*models.Chunk) error {
	var dim int
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			return fmt.Errorf("document %s: chunk at position %d has index %d, want contiguous from 0", docID, i, ch.ChunkIndex)
		}
		if ch.Text == "" {
			return fmt.Errorf("document %s: chunk %d has empty text", docID, i)
		}
		if ch.EndOffset <= ch.StartOffset {
			return fmt.Errorf("document %s: chunk %d has end offset %d <= start offset %d", docID, i, ch.EndOffset, ch.StartOffset)
		}
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("document %s: chunk %d has no embedding", docID, i)
		}
		if dim == 0 {
			dim = len(ch.Embedding)
		} else if len(ch.Embedding) != dim {
			return fmt.Errorf("document %s: chunk %d embedding has length %d, others have %d", docID, i, len(ch.Embedding), dim)
		}
	}
	return nil
}

// Create atomically writes the document and all its chunks; an existing record
// with the same id is replaced together with its chunks (upsert).
func (s *SQLiteStore) Create(ctx context.Context, doc *models.Document, chunks []*models.Chunk) (string, error) {
	if err := validateChunks(doc.ID, chunks); err != nil {
		return "", err
	}
	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Upsert: drop any prior record and its chunks, then insert fresh.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, doc.ID); err != nil {
		return "", fmt.Errorf("failed to clear prior chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
		return "", fmt.Errorf("failed to clear prior document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, source_file_name, file_kind, file_size_bytes,
		 subject, author, tags, difficulty, content_type, owner_id,
		 full_text, embedding_model_id, created_at, processed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.SourceFileName, string(doc.FileKind), doc.FileSizeBytes,
		doc.Subject, doc.Author, string(tagsJSON), string(doc.Difficulty), string(doc.ContentType), doc.OwnerID,
		doc.FullText, doc.EmbeddingModelID, doc.CreatedAt, nullableTime(doc.ProcessedAt), doc.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, chunk_index, text, embedding, start_offset, end_offset)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		ch.DocumentID = doc.ID
		if _, err := stmt.ExecContext(ctx, ch.DocumentID, ch.ChunkIndex, ch.Text,
			encodeVector(ch.Embedding), ch.StartOffset, ch.EndOffset); err != nil {
			return "", fmt.Errorf("failed to insert chunk %d: %w", ch.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return doc.ID, nil
}

const documentColumns = `id, title, source_file_name, file_kind, file_size_bytes,
	subject, author, tags, difficulty, content_type, owner_id,
	full_text, embedding_model_id, created_at, processed_at, updated_at`

// Get returns the document by id, optionally with its chunks ordered by index.
func (s *SQLiteStore) Get(ctx context.Context, id string, opts GetOptions) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if opts.IncludeChunks {
		chunks, err := s.chunksFor(ctx, id, opts.IncludeEmbeddings)
		if err != nil {
			return nil, err
		}
		doc.Chunks = chunks
	}
	return doc, nil
}

func (s *SQLiteStore) chunksFor(ctx context.Context, docID string, withEmbeddings bool) ([]*models.Chunk, error) {
	cols := `document_id, chunk_index, text, start_offset, end_offset`
	if withEmbeddings {
		cols += `, embedding`
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cols+` FROM chunks WHERE document_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var ch models.Chunk
		if withEmbeddings {
			var blob []byte
			if err := rows.Scan(&ch.DocumentID, &ch.ChunkIndex, &ch.Text, &ch.StartOffset, &ch.EndOffset, &blob); err != nil {
				return nil, err
			}
			ch.Embedding = decodeVector(blob)
		} else {
			if err := rows.Scan(&ch.DocumentID, &ch.ChunkIndex, &ch.Text, &ch.StartOffset, &ch.EndOffset); err != nil {
				return nil, err
			}
		}
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// Update applies a partial metadata update. Only the mutable fields are
// touched; full text and chunks are immutable after creation.
func (s *SQLiteStore) Update(ctx context.Context, id string, update *models.DocumentUpdate) (*models.Document, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: update changes nothing", models.ErrInvalidArgument)
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Subject != nil {
		sets = append(sets, "subject = ?")
		args = append(args, *update.Subject)
	}
	if update.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *update.Author)
	}
	if update.Tags != nil {
		tagsJSON, err := json.Marshal(*update.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tags: %w", err)
		}
		sets = append(sets, "tags = ?")
		args = append(args, string(tagsJSON))
	}
	if update.Difficulty != nil {
		sets = append(sets, "difficulty = ?")
		args = append(args, string(*update.Difficulty))
	}
	if update.ContentType != nil {
		sets = append(sets, "content_type = ?")
		args = append(args, string(*update.ContentType))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now())
	args = append(args, id)

	query := "UPDATE documents SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Get(ctx, id, GetOptions{})
}

// Delete removes the document and its chunks in one transaction.
// Returns false when the id was absent.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete chunks: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	n, _ := result.RowsAffected()
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return n > 0, nil
}

// filterClause builds a WHERE fragment from the equality filters. prefix is
// the table alias (e.g. "d.") or empty.
func filterClause(filters models.Filters, prefix string) (string, []interface{}) {
	clause := ""
	var args []interface{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		if clause == "" {
			clause = " WHERE "
		} else {
			clause += " AND "
		}
		clause += prefix + col + " = ?"
		args = append(args, val)
	}
	add("subject", filters.Subject)
	add("author", filters.Author)
	add("content_type", string(filters.ContentType))
	add("difficulty", string(filters.Difficulty))
	add("owner_id", filters.OwnerID)
	return clause, args
}

// List returns a page of documents without full text, newest first, and the
// total count matching the filters.
func (s *SQLiteStore) List(ctx context.Context, page, pageSize int, filters models.Filters) ([]*models.Document, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	clause, args := filterClause(filters, "")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	listArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents`+clause+
			` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		doc.FullText = ""
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

// ScanChunks streams chunks joined with document metadata to fn. Rows are
// consumed one at a time; a non-nil error from fn aborts the scan.
func (s *SQLiteStore) ScanChunks(ctx context.Context, filters models.Filters, fn func(*ChunkRecord) error) error {
	clause, args := filterClause(filters, "d.")
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.document_id, c.chunk_index, c.text, c.embedding,
		 d.title, d.source_file_name, d.file_kind, d.subject, d.author, d.tags,
		 d.difficulty, d.content_type, d.owner_id, d.embedding_model_id,
		 d.created_at, d.updated_at
		 FROM chunks c JOIN documents d ON c.document_id = d.id`+clause+
			` ORDER BY c.document_id, c.chunk_index`, args...)
	if err != nil {
		return fmt.Errorf("failed to scan chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec      ChunkRecord
			doc      models.Document
			blob     []byte
			tagsJSON sql.NullString
			srcName  sql.NullString
			subject  sql.NullString
			author   sql.NullString
			diff     sql.NullString
			ctype    sql.NullString
			owner    sql.NullString
		)
		if err := rows.Scan(&rec.DocumentID, &rec.ChunkIndex, &rec.Text, &blob,
			&doc.Title, &srcName, &doc.FileKind, &subject, &author, &tagsJSON,
			&diff, &ctype, &owner, &doc.EmbeddingModelID,
			&doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan chunk row: %w", err)
		}
		doc.ID = rec.DocumentID
		doc.SourceFileName = srcName.String
		doc.Subject = subject.String
		doc.Author = author.String
		doc.Difficulty = models.Difficulty(diff.String)
		doc.ContentType = models.ContentType(ctype.String)
		doc.OwnerID = owner.String
		if tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &doc.Tags); err != nil {
				return fmt.Errorf("failed to unmarshal tags for %s: %w", doc.ID, err)
			}
		}
		rec.Embedding = decodeVector(blob)
		rec.Document = &doc
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		doc       models.Document
		srcName   sql.NullString
		fileSize  sql.NullInt64
		subject   sql.NullString
		author    sql.NullString
		tagsJSON  sql.NullString
		diff      sql.NullString
		ctype     sql.NullString
		owner     sql.NullString
		processed sql.NullTime
	)
	err := row.Scan(&doc.ID, &doc.Title, &srcName, &doc.FileKind, &fileSize,
		&subject, &author, &tagsJSON, &diff, &ctype, &owner,
		&doc.FullText, &doc.EmbeddingModelID, &doc.CreatedAt, &processed, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.SourceFileName = srcName.String
	doc.FileSizeBytes = fileSize.Int64
	doc.Subject = subject.String
	doc.Author = author.String
	doc.Difficulty = models.Difficulty(diff.String)
	doc.ContentType = models.ContentType(ctype.String)
	doc.OwnerID = owner.String
	if processed.Valid {
		doc.ProcessedAt = processed.Time
	}
	if tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &doc.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &doc, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// encodeVector serializes a vector as little-endian float32 bytes.
func encodeVector(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out
}

// decodeVector deserializes little-endian float32 bytes back into a vector.
func decodeVector(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
