package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mwiater/toolflow/internal/schema"
)

var documentRecord = schema.MustCompile(schema.Object(
	schema.Required("id", schema.String().MinLen(1)),
	schema.Required("text", schema.String()),
	schema.Required("embedding", schema.ArrayOf(schema.Number())),
	schema.Required("provider", schema.String().MinLen(1)),
))

// JSONFile stores the collection as one JSON array, replaced atomically on
// every save.
type JSONFile struct {
	path string
}

// NewJSONFile returns a backend for path. The file is created on first save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the backing file path.
func (f *JSONFile) Path() string { return f.path }

// Load reads and shape-checks every record. A missing or empty file is an
// empty store.
func (f *JSONFile) Load(_ context.Context) ([]Document, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}

	docs := make([]Document, 0, len(records))
	for i, record := range records {
		normalized, err := documentRecord.Validate(record)
		if err != nil {
			return nil, fmt.Errorf("record %d in %s: %w", i, f.path, err)
		}
		var doc Document
		if err := schema.Decode(normalized, &doc); err != nil {
			return nil, fmt.Errorf("record %d in %s: %w", i, f.path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Save writes docs to a temporary file in the same directory and renames it
// over the target.
func (f *JSONFile) Save(_ context.Context, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
