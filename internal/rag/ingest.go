package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/toolflow/internal/chunker"
	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/vectorstore"
)

// Ingest status values.
const (
	StatusAdded  = "added"
	StatusFailed = "failed"
)

// IngestRequest describes one source text to chunk, embed and store.
type IngestRequest struct {
	ID        string // source id shared by every chunk; generated when empty
	Text      string
	Provider  string
	ChunkSize int
	Overlap   int
	Label     string // used in progress lines only
}

// IngestResult summarizes an ingest.
type IngestResult struct {
	ID     string `json:"id"`
	Tokens int    `json:"tokens"`
	Chunks int    `json:"chunks"`
	Status string `json:"status"`
}

// Ingest chunks req.Text and stores every chunk under one source id.
//
// Chunks already stored when a later embed or store call fails stay in the
// store. The returned result then has Status "failed" and Chunks counts the
// stored ones, and the error is a *protocol.Fault whose details carry the id
// together with the stored and total chunk counts.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	size, overlap := req.ChunkSize, req.Overlap
	if size <= 0 {
		size = p.opts.ChunkSize
	}
	if overlap < 0 {
		overlap = p.opts.Overlap
	}
	chunks, err := chunker.Split(req.Text, size, overlap)
	if err != nil {
		return IngestResult{}, protocol.Validation("overlap must be smaller than chunkSize", map[string]any{
			"chunkSize": size,
			"overlap":   overlap,
		})
	}
	if len(chunks) == 0 {
		return IngestResult{}, protocol.Validation("document contains no text to ingest", nil)
	}

	prov, err := p.provider(req.Provider)
	if err != nil {
		return IngestResult{}, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = p.opts.NewID()
	}
	label := req.Label
	if label == "" {
		label = id
	}

	start := time.Now()
	p.status(start, "[RAG] Split %s into %d chunks (chunkSize=%d words, overlap=%d words, provider=%s)", label, len(chunks), size, overlap, prov.Name())

	result := IngestResult{ID: id, Status: StatusAdded}
	for idx, c := range chunks {
		emb, err := prov.Embed(ctx, c.Text)
		if err != nil {
			return p.partial(result, len(chunks), protocol.ProviderFault(prov.Name(), fmt.Errorf("embed chunk %d: %w", idx, err)))
		}
		_, err = p.store.Add(ctx, vectorstore.Document{
			ID:        id,
			Text:      c.Text,
			Embedding: emb.Vector,
			Provider:  prov.Name(),
		})
		if err != nil {
			return p.partial(result, len(chunks), storeFault(prov.Name(), fmt.Errorf("store chunk %d: %w", idx, err)))
		}
		if p.opts.Observer != nil {
			p.opts.Observer.ObserveStoredDocument(prov.Name())
		}

		result.Chunks++
		result.Tokens += emb.Tokens
		if idx%10 == 0 || idx == len(chunks)-1 {
			p.status(start, "[RAG] ...embedded %s chunk %d/%d", label, idx+1, len(chunks))
		}
	}

	p.status(start, "[RAG] Added %s: %d chunks, %d tokens", label, result.Chunks, result.Tokens)
	return result, nil
}

func (p *Pipeline) partial(result IngestResult, total int, fault *protocol.Fault) (IngestResult, error) {
	result.Status = StatusFailed
	details := map[string]any{
		"id":           result.ID,
		"storedChunks": result.Chunks,
		"totalChunks":  total,
	}
	if existing, ok := fault.Details.(map[string]any); ok {
		for k, v := range existing {
			details[k] = v
		}
	}
	return result, fault.WithDetails(details)
}

// AddDoc embeds text as a single unchunked document under a new id.
func (p *Pipeline) AddDoc(ctx context.Context, text, provider string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", protocol.Validation("text is empty", nil)
	}
	prov, err := p.provider(provider)
	if err != nil {
		return "", err
	}
	emb, err := prov.Embed(ctx, text)
	if err != nil {
		return "", protocol.ProviderFault(prov.Name(), err)
	}

	id := p.opts.NewID()
	if _, err := p.store.Add(ctx, vectorstore.Document{
		ID:        id,
		Text:      text,
		Embedding: emb.Vector,
		Provider:  prov.Name(),
	}); err != nil {
		return "", storeFault(prov.Name(), err)
	}
	if p.opts.Observer != nil {
		p.opts.Observer.ObserveStoredDocument(prov.Name())
	}
	return id, nil
}

// IsPartial reports whether err came from an ingest that stored some chunks
// before failing.
func IsPartial(result IngestResult, err error) bool {
	var fault *protocol.Fault
	return err != nil && result.Chunks > 0 && errors.As(err, &fault)
}
