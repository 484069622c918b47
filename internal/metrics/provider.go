package metrics

import (
	"context"
	"time"

	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/providers"
)

// Provider is a decorator that wraps a providers.Provider to record metrics.
type Provider struct {
	wrapped providers.Provider
	metrics *Metrics
}

// NewProvider creates a new metrics-enabled provider that wraps an existing Provider.
func NewProvider(wrapped providers.Provider, m *Metrics) *Provider {
	logging.LogEvent("[METRICS] Wrapping provider %s with metrics provider", wrapped.Name())
	return &Provider{wrapped: wrapped, metrics: m}
}

// Name passes the call through to the wrapped provider.
func (p *Provider) Name() string { return p.wrapped.Name() }

// Embed records latency, outcome and token usage of the wrapped call.
func (p *Provider) Embed(ctx context.Context, text string) (providers.Embedding, error) {
	start := time.Now()
	emb, err := p.wrapped.Embed(ctx, text)
	p.record("embed", start, err)
	if err == nil {
		p.metrics.embedTokens.WithLabelValues(p.wrapped.Name()).Add(float64(emb.Tokens))
	}
	return emb, err
}

// Chat records latency and outcome of the wrapped call.
func (p *Provider) Chat(ctx context.Context, messages []providers.ChatMessage) (string, error) {
	start := time.Now()
	reply, err := p.wrapped.Chat(ctx, messages)
	p.record("chat", start, err)
	return reply, err
}

// Close passes the call through to the wrapped provider.
func (p *Provider) Close() error {
	return p.wrapped.Close()
}

func (p *Provider) record(op string, start time.Time, err error) {
	name := p.wrapped.Name()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.metrics.providerCalls.WithLabelValues(name, op, outcome).Inc()
	p.metrics.providerDuration.WithLabelValues(name, op).Observe(time.Since(start).Seconds())
}
