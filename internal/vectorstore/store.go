// Package vectorstore persists embedded document chunks and answers exact
// top-K cosine queries over them.
//
// A Store owns its in-memory cache. Writes are serialized by the store's
// mutex and only reach the cache after the backend has persisted them, so the
// cache and the persisted resource agree after every successful Add. Queries
// share a read lock and never block each other.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the
	// dimension fixed for its provider.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidDocument is returned for documents missing an id, provider or
	// usable embedding.
	ErrInvalidDocument = errors.New("invalid document")
)

// Document is one stored chunk. Chunks of the same source share ID.
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
	Provider  string    `json:"provider"`
}

// Result is a scored query hit.
type Result struct {
	Document Document
	Score    float64
}

// Backend loads and persists the full ordered document collection. Load on a
// resource that does not exist yet returns an empty collection and no error.
type Backend interface {
	Load(ctx context.Context) ([]Document, error)
	Save(ctx context.Context, docs []Document) error
}

// Appender is implemented by backends that can persist new documents without
// rewriting the collection.
type Appender interface {
	Append(ctx context.Context, docs ...Document) error
}

// Option configures a Store.
type Option func(*Store)

// WithDimensions fixes the expected embedding length per provider. Providers
// without an entry are pinned by their first stored document.
func WithDimensions(dims map[string]int) Option {
	return func(s *Store) {
		for provider, dim := range dims {
			if dim > 0 {
				s.fixed[provider] = dim
			}
		}
	}
}

// Store is the document collection plus its cache.
type Store struct {
	backend Backend

	mu     sync.RWMutex
	loaded bool
	docs   []Document
	fixed  map[string]int
	pinned map[string]int
}

// New returns a store over backend. Nothing is read until first use.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		fixed:   make(map[string]int),
		pinned:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates and persists doc, then appends it to the cache.
func (s *Store) Add(ctx context.Context, doc Document) (Document, error) {
	if err := validateDocument(doc); err != nil {
		return Document{}, err
	}
	doc.Embedding = append([]float64(nil), doc.Embedding...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return Document{}, err
	}
	if want := s.dimensionLocked(doc.Provider); want > 0 && want != len(doc.Embedding) {
		return Document{}, fmt.Errorf("%w: provider %q expects %d, got %d", ErrDimensionMismatch, doc.Provider, want, len(doc.Embedding))
	}

	if appender, ok := s.backend.(Appender); ok {
		if err := appender.Append(ctx, doc); err != nil {
			return Document{}, fmt.Errorf("append document: %w", err)
		}
	} else {
		next := make([]Document, len(s.docs), len(s.docs)+1)
		copy(next, s.docs)
		next = append(next, doc)
		if err := s.backend.Save(ctx, next); err != nil {
			return Document{}, fmt.Errorf("save documents: %w", err)
		}
	}

	s.docs = append(s.docs, doc)
	if _, ok := s.pinned[doc.Provider]; !ok {
		s.pinned[doc.Provider] = len(doc.Embedding)
	}
	return doc, nil
}

// Query returns up to k documents of provider ordered by descending cosine
// similarity to embedding. Equal scores keep store order. k <= 0 or an empty
// store yields an empty result.
func (s *Store) Query(ctx context.Context, embedding []float64, provider string, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if want := s.pinned[provider]; want > 0 && want != len(embedding) {
		return nil, fmt.Errorf("%w: provider %q stores %d, query has %d", ErrDimensionMismatch, provider, want, len(embedding))
	}

	queryNorm := vectorNorm(embedding)
	results := make([]Result, 0)
	for _, doc := range s.docs {
		if doc.Provider != provider || len(doc.Embedding) != len(embedding) {
			continue
		}
		results = append(results, Result{
			Document: doc,
			Score:    cosineSimilarity(embedding, doc.Embedding, queryNorm),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Documents returns a copy of every stored document in store order.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

// Close releases the backend if it holds resources.
func (s *Store) Close() error {
	if closer, ok := s.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	docs, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	s.docs = docs
	for _, doc := range docs {
		if _, ok := s.pinned[doc.Provider]; !ok {
			s.pinned[doc.Provider] = len(doc.Embedding)
		}
	}
	s.loaded = true
	return nil
}

func (s *Store) dimensionLocked(provider string) int {
	if dim, ok := s.fixed[provider]; ok {
		return dim
	}
	return s.pinned[provider]
}

func validateDocument(doc Document) error {
	switch {
	case strings.TrimSpace(doc.ID) == "":
		return fmt.Errorf("%w: id is empty", ErrInvalidDocument)
	case strings.TrimSpace(doc.Provider) == "":
		return fmt.Errorf("%w: provider is empty", ErrInvalidDocument)
	case len(doc.Embedding) == 0:
		return fmt.Errorf("%w: embedding is empty", ErrInvalidDocument)
	}
	for i, v := range doc.Embedding {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: embedding value %d is not finite", ErrInvalidDocument, i)
		}
	}
	return nil
}

// cosineSimilarity is dot(a,b) / (|a|·|b|). Zero vectors score 0.
func cosineSimilarity(a, b []float64, normA float64) float64 {
	if normA == 0 {
		return 0
	}
	normB := vectorNorm(b)
	if normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	score := dot / (normA * normB)
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, val := range v {
		sum += val * val
	}
	return math.Sqrt(sum)
}
