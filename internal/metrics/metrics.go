// Package metrics exports invocation and provider activity as Prometheus
// collectors.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwiater/toolflow/internal/protocol"
)

const namespace = "toolflow"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	invocations      *prometheus.CounterVec
	invocationTime   *prometheus.HistogramVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	embedTokens      *prometheus.CounterVec
	storeDocuments   *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// GetInstance returns the process-wide Metrics.
func GetInstance() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates collectors on a fresh registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Tool invocations by tool, status and error code.",
		}, []string{"tool", "status", "code"}),
		invocationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_invocation_duration_seconds",
			Help:      "Handler execution time per tool.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Embed and chat calls by provider and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of embed and chat calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		embedTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_tokens_total",
			Help:      "Tokens consumed by embedding calls.",
		}, []string{"provider"}),
		storeDocuments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_documents_added_total",
			Help:      "Chunks persisted to the vector store.",
		}, []string{"provider"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.invocations,
		m.invocationTime,
		m.providerCalls,
		m.providerDuration,
		m.embedTokens,
		m.storeDocuments,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveInvocation records one finished tool call. An empty code is success.
func (m *Metrics) ObserveInvocation(toolID string, code protocol.ErrorCode, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := string(protocol.StatusSuccess)
	if code != "" {
		status = string(protocol.StatusError)
	}
	m.invocations.WithLabelValues(toolID, status, string(code)).Inc()
	if elapsed > 0 {
		m.invocationTime.WithLabelValues(toolID).Observe(elapsed.Seconds())
	}
}

// ObserveStoredDocument counts one chunk persisted for provider.
func (m *Metrics) ObserveStoredDocument(provider string) {
	if m == nil {
		return
	}
	m.storeDocuments.WithLabelValues(provider).Inc()
}
