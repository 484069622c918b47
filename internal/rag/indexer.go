package rag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mwiater/toolflow/internal/protocol"
)

// DefaultCorpusInclude selects every plain-text file under the corpus root.
var DefaultCorpusInclude = []string{"**/*.{txt,md,markdown,text}"}

var plainTextExtensions = map[string]struct{}{
	".txt":      {},
	".md":       {},
	".markdown": {},
	".text":     {},
}

var extractedFormats = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".doc":  {},
}

// IngestFile reads a local plain-text file and ingests it under a new source
// id. Formats that need text extraction are rejected.
func (p *Pipeline) IngestFile(ctx context.Context, path string, req IngestRequest) (IngestResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return IngestResult{}, protocol.Validation("invalid file path", map[string]any{"filePath": path})
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if _, ok := extractedFormats[ext]; ok {
		return IngestResult{}, protocol.Validation(
			fmt.Sprintf("unsupported file type %q: extract the text first and ingest it with doc.ingestText.v1", ext),
			map[string]any{"filePath": path, "extension": ext},
		)
	}
	if _, ok := plainTextExtensions[ext]; !ok {
		return IngestResult{}, protocol.Validation(
			fmt.Sprintf("unsupported file type %q: only .txt, .md, .markdown and .text files can be ingested", ext),
			map[string]any{"filePath": path, "extension": ext},
		)
	}

	raw, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return IngestResult{}, protocol.Validation("file not found", map[string]any{"filePath": path})
	}
	if err != nil {
		return IngestResult{}, fmt.Errorf("read %s: %w", abs, err)
	}

	req.Text = string(raw)
	if req.Label == "" {
		req.Label = filepath.Base(abs)
	}
	return p.Ingest(ctx, req)
}

// CorpusRequest selects files under Root by glob.
type CorpusRequest struct {
	Root      string
	Include   []string // doublestar patterns relative to Root
	Exclude   []string
	Provider  string
	ChunkSize int
	Overlap   int
}

// FileResult is the ingest outcome of one corpus file.
type FileResult struct {
	Path   string       `json:"path"`
	Result IngestResult `json:"result"`
}

// CorpusResult summarizes a corpus index run.
type CorpusResult struct {
	Files   []FileResult `json:"files"`
	Skipped []string     `json:"skipped,omitempty"`
	Chunks  int          `json:"chunks"`
	Tokens  int          `json:"tokens"`
}

// IndexCorpus ingests every matching file, one source id per file. Files
// with no text are skipped. The run stops at the first provider or storage
// failure.
func (p *Pipeline) IndexCorpus(ctx context.Context, req CorpusRequest) (CorpusResult, error) {
	if strings.TrimSpace(req.Root) == "" {
		return CorpusResult{}, fmt.Errorf("corpus root is required")
	}
	files, err := discoverCorpusFiles(req.Root, req.Include, req.Exclude)
	if err != nil {
		return CorpusResult{}, err
	}
	if len(files) == 0 {
		return CorpusResult{}, fmt.Errorf("no corpus files found under %s", req.Root)
	}

	start := time.Now()
	p.status(start, "[RAG] Indexing corpus: %s (%d files)", req.Root, len(files))

	var out CorpusResult
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		path := filepath.Join(req.Root, filepath.FromSlash(rel))
		res, err := p.IngestFile(ctx, path, IngestRequest{
			Provider:  req.Provider,
			ChunkSize: req.ChunkSize,
			Overlap:   req.Overlap,
			Label:     rel,
		})
		if err != nil {
			if fault, ok := protocol.AsFault(err); ok && fault.Code == protocol.CodeValidation {
				p.status(start, "[RAG] Skipping %s: %s", rel, fault.Message)
				out.Skipped = append(out.Skipped, rel)
				continue
			}
			if res.Chunks > 0 {
				out.Files = append(out.Files, FileResult{Path: rel, Result: res})
				out.Chunks += res.Chunks
				out.Tokens += res.Tokens
			}
			return out, fmt.Errorf("index %s: %w", rel, err)
		}
		out.Files = append(out.Files, FileResult{Path: rel, Result: res})
		out.Chunks += res.Chunks
		out.Tokens += res.Tokens
	}

	p.status(start, "[RAG] Index complete: %d files, %d chunks, %d tokens", len(out.Files), out.Chunks, out.Tokens)
	return out, nil
}

// discoverCorpusFiles returns slash-separated paths relative to root, sorted
// and de-duplicated.
func discoverCorpusFiles(root string, include, exclude []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", root)
	}
	if len(include) == 0 {
		include = DefaultCorpusInclude
	}
	for _, pattern := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid corpus pattern %q", pattern)
		}
	}

	seen := make(map[string]struct{})
	fsys := os.DirFS(root)
	for _, pattern := range include {
		err := doublestar.GlobWalk(fsys, pattern, func(path string, d fs.DirEntry) error {
			if d.IsDir() || shouldExclude(path, exclude) {
				return nil
			}
			seen[path] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func shouldExclude(path string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}
