package localstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
)

func init() {
	sqlite_vec.Auto()
}

type Config struct {
	Path         string `envconfig:"PATH" split_words:"true" default:"data/rules.db"`
	EmbeddingDim int    `envconfig:"EMBEDDING_DIM" split_words:"true" default:"1536"`
}

// Document is one ingested rules file.
type Document struct {
	ID          int64
	Filename    string
	ContentHash string
	Pages       int
}

// Chunk is one embeddable passage of a document.
type Chunk struct {
	Content    string
	PageNumber int
}

// Embedder turns text passages into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store keeps compliance-rule chunks in SQLite with a sqlite-vec index for
// nearest-neighbour retrieval.
type Store struct {
	db       *sql.DB
	embedder Embedder
	dim      int
}

func New(cfg Config, embedder Embedder) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("localstore: embedder is required")
	}
	dim := cfg.EmbeddingDim
	if dim <= 0 {
		dim = 1536
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "data/rules.db"
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("localstore: create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("localstore: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: ping database: %w", err)
	}
	if _, err := db.Exec(schemaSQL(dim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: create schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, embedder: embedder, dim: dim}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// HasDocument reports whether a file with this name was already ingested.
func (s *Store) HasDocument(ctx context.Context, filename string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM documents WHERE filename = ?", filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("localstore: check document %q: %w", filename, err)
	}
	return count > 0, nil
}

// IndexDocument stores a document with its chunks and embeddings. Chunks are
// embedded in a single batch call.
func (s *Store) IndexDocument(ctx context.Context, doc Document, chunks []Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("localstore: document %q has no chunks", doc.Filename)
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	vectors, err := s.embedder.Embed(ctx, contents)
	if err != nil {
		return fmt.Errorf("localstore: embed chunks for %q: %w", doc.Filename, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("localstore: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO documents (filename, content_hash, pages) VALUES (?, ?, ?)",
		doc.Filename, doc.ContentHash, doc.Pages)
	if err != nil {
		return fmt.Errorf("localstore: insert document %q: %w", doc.Filename, err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("localstore: document id: %w", err)
	}

	for i, chunk := range chunks {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (document_id, content, page_number) VALUES (?, ?, ?)",
			docID, chunk.Content, chunk.PageNumber)
		if err != nil {
			return fmt.Errorf("localstore: insert chunk: %w", err)
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("localstore: chunk id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
			chunkID, serializeFloat32(vectors[i])); err != nil {
			return fmt.Errorf("localstore: insert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("localstore: commit document %q: %w", doc.Filename, err)
	}
	return nil
}

// Retrieve embeds the query and returns the k nearest rule chunks.
func (s *Store) Retrieve(ctx context.Context, query string, k int) ([]contractx.RuleExcerpt, error) {
	if k <= 0 {
		k = 3
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("localstore: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("localstore: embedder returned %d vectors for one query", len(vectors))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.distance, c.content, c.page_number, d.filename
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(vectors[0]), k)
	if err != nil {
		return nil, fmt.Errorf("localstore: vector search: %w", err)
	}
	defer rows.Close()

	var excerpts []contractx.RuleExcerpt
	for rows.Next() {
		var distance float64
		var content, filename string
		var page int
		if err := rows.Scan(&distance, &content, &page, &filename); err != nil {
			return nil, fmt.Errorf("localstore: scan search row: %w", err)
		}
		excerpts = append(excerpts, contractx.RuleExcerpt{
			Content: content,
			Source:  fmt.Sprintf("%s#page=%d", filename, page),
			Score:   1.0 - distance,
		})
	}
	return excerpts, rows.Err()
}

func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    filename TEXT NOT NULL UNIQUE,
    content_hash TEXT NOT NULL,
    pages INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    content TEXT NOT NULL,
    page_number INTEGER
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);
`, embeddingDim)
}

// serializeFloat32 converts a vector to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
