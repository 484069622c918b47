package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	vectorBlobHeaderSize = 4
	vectorValueByteSize  = 8
)

// SQLite stores documents as rows of an append-only table. Add inserts one
// row in a transaction instead of rewriting the collection.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLite) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_provider ON documents(provider, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns every row in insertion order.
func (s *SQLite) Load(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc_id, provider, text, embedding FROM documents ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.Provider, &doc.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		doc.Embedding = vec
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Save replaces the whole table with docs.
func (s *SQLite) Save(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	if err := insertDocuments(ctx, tx, docs); err != nil {
		return err
	}
	return tx.Commit()
}

// Append inserts docs after the existing rows.
func (s *SQLite) Append(ctx context.Context, docs ...Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertDocuments(ctx, tx, docs); err != nil {
		return err
	}
	return tx.Commit()
}

func insertDocuments(ctx context.Context, tx *sql.Tx, docs []Document) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (doc_id, provider, text, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		blob, err := encodeVector(doc.Embedding)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.Provider, doc.Text, blob); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// encodeVector lays out [4-byte little-endian dimension][N x 8-byte little-endian float64].
func encodeVector(vector []float64) ([]byte, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("encode vector: empty vector")
	}
	maxDim := (math.MaxUint32 - vectorBlobHeaderSize) / vectorValueByteSize
	if len(vector) > maxDim {
		return nil, fmt.Errorf("encode vector: dimension too large: %d", len(vector))
	}

	blob := make([]byte, vectorBlobHeaderSize+len(vector)*vectorValueByteSize)
	binary.LittleEndian.PutUint32(blob[:vectorBlobHeaderSize], uint32(len(vector)))
	offset := vectorBlobHeaderSize
	for _, value := range vector {
		binary.LittleEndian.PutUint64(blob[offset:offset+vectorValueByteSize], math.Float64bits(value))
		offset += vectorValueByteSize
	}
	return blob, nil
}

func decodeVector(blob []byte) ([]float64, error) {
	if len(blob) < vectorBlobHeaderSize {
		return nil, fmt.Errorf("decode vector: invalid vector blob length: %d", len(blob))
	}
	dim := int(binary.LittleEndian.Uint32(blob[:vectorBlobHeaderSize]))
	if dim <= 0 {
		return nil, fmt.Errorf("decode vector: invalid vector dimension: %d", dim)
	}
	if want := vectorBlobHeaderSize + dim*vectorValueByteSize; len(blob) != want {
		return nil, fmt.Errorf("decode vector: dimension mismatch: dim=%d payload=%d", dim, len(blob)-vectorBlobHeaderSize)
	}

	vector := make([]float64, dim)
	offset := vectorBlobHeaderSize
	for i := range vector {
		value := math.Float64frombits(binary.LittleEndian.Uint64(blob[offset : offset+vectorValueByteSize]))
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("decode vector: invalid value at index %d", i)
		}
		vector[i] = value
		offset += vectorValueByteSize
	}
	return vector, nil
}
