// Package rag composes chunking, embedding and the vector store into the
// ingest and search operations behind the RAG tools.
package rag

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/vectorstore"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultChunkSize        = 500
	DefaultOverlap          = 50
	DefaultTopK             = 3
	DefaultContextCharLimit = 1000
)

// StoreObserver is notified for every chunk persisted.
type StoreObserver interface {
	ObserveStoredDocument(provider string)
}

// Options tunes a Pipeline.
type Options struct {
	ChunkSize        int
	Overlap          int
	TopK             int
	ContextCharLimit int
	// Progress, when set, also receives ingest status lines.
	Progress io.Writer
	Observer StoreObserver
	NewID    func() string
	// QueryCache, when set, memoizes query embeddings in Retrieve.
	QueryCache *providers.QueryCache
}

// Pipeline runs ingest and search against one store and provider set.
type Pipeline struct {
	providers *providers.Set
	store     *vectorstore.Store
	opts      Options
}

// New returns a pipeline. Zero option fields take the package defaults.
func New(set *providers.Set, store *vectorstore.Store, opts Options) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.ChunkSize {
		opts.Overlap = min(DefaultOverlap, opts.ChunkSize-1)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.ContextCharLimit <= 0 {
		opts.ContextCharLimit = DefaultContextCharLimit
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Pipeline{providers: set, store: store, opts: opts}
}

// Store returns the underlying vector store.
func (p *Pipeline) Store() *vectorstore.Store { return p.store }

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

func (p *Pipeline) provider(name string) (providers.Provider, error) {
	prov, err := p.providers.Get(name)
	if err != nil {
		return nil, protocol.Validation(fmt.Sprintf("unknown provider %q", name), map[string]any{
			"provider":  name,
			"available": p.providers.Names(),
		})
	}
	return prov, nil
}

// status logs a line and mirrors it to the progress writer.
func (p *Pipeline) status(start time.Time, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logging.LogEvent("%s", msg)
	if p.opts.Progress != nil {
		elapsed := time.Since(start).Truncate(time.Millisecond)
		fmt.Fprintf(p.opts.Progress, "[%s] %s\n", elapsed, msg)
	}
}

// storeFault classifies a vector store error. A vector the store rejects came
// from the provider, so it is reported as a provider fault.
func storeFault(provider string, err error) *protocol.Fault {
	if errors.Is(err, vectorstore.ErrDimensionMismatch) || errors.Is(err, vectorstore.ErrInvalidDocument) {
		return protocol.ProviderFault(provider, err)
	}
	return protocol.StorageFault(err)
}
