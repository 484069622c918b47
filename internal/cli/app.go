package toolflow

import (
	"errors"
	"fmt"
	"io"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/dispatcher"
	"github.com/mwiater/toolflow/internal/metrics"
	"github.com/mwiater/toolflow/internal/providerfactory"
	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/rag"
	"github.com/mwiater/toolflow/internal/registry"
	"github.com/mwiater/toolflow/internal/tools"
	"github.com/mwiater/toolflow/internal/vectorstore"
)

// app is the wired runtime shared by every command: providers, store, RAG
// pipeline, the sealed registry and its dispatcher.
type app struct {
	cfg        *appconfig.Config
	metrics    *metrics.Metrics
	providers  *providers.Set
	store      *vectorstore.Store
	pipeline   *rag.Pipeline
	dispatcher *dispatcher.Dispatcher
}

// newApp builds the runtime from cfg. progress receives ingest status lines
// and may be nil.
func newApp(cfg *appconfig.Config, progress io.Writer) (*app, error) {
	if cfg == nil {
		return nil, errors.New("configuration is not initialized")
	}
	a := &app{cfg: cfg}
	if cfg.Metrics {
		a.metrics = metrics.GetInstance()
	}

	set, err := providerfactory.NewProviderSet(cfg, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}
	a.providers = set

	backend, err := vectorstore.Open(cfg.StoreBackend(), cfg.StorePath())
	if err != nil {
		_ = set.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}
	dims := make(map[string]int)
	for _, name := range cfg.ProviderNames() {
		if d := cfg.ExpectedDimension(name); d > 0 {
			dims[name] = d
		}
	}
	a.store = vectorstore.New(backend, vectorstore.WithDimensions(dims))

	queryCache, err := providers.NewQueryCache(cfg.EmbedCacheSize())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("query cache: %w", err)
	}
	opts := rag.Options{
		ChunkSize:        cfg.ChunkSize(),
		Overlap:          cfg.ChunkOverlap(),
		TopK:             cfg.TopK(),
		ContextCharLimit: cfg.ContextCharLimit(),
		Progress:         progress,
		QueryCache:       queryCache,
	}
	var dispatchOpts []dispatcher.Option
	if a.metrics != nil {
		opts.Observer = a.metrics
		dispatchOpts = append(dispatchOpts, dispatcher.WithObserver(a.metrics))
	}
	a.pipeline = rag.New(set, a.store, opts)

	reg := registry.New()
	if err := tools.RegisterAll(reg, tools.Deps{Providers: set, Pipeline: a.pipeline}); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}
	reg.Seal()
	a.dispatcher = dispatcher.New(reg, dispatchOpts...)
	return a, nil
}

// Close releases the store backend and provider connections.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.providers != nil {
		errs = append(errs, a.providers.Close())
	}
	return errors.Join(errs...)
}
