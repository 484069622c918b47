// Package ollama provides a providers.Provider backed by Ollama-compatible
// HTTP endpoints.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/providers"
)

const (
	defaultURL        = "http://localhost:11434"
	defaultChatModel  = "llama3"
	defaultEmbedModel = "nomic-embed-text"
)

// Provider implements providers.Provider using the Ollama HTTP API.
type Provider struct {
	name       string
	baseURL    string
	chatModel  string
	embedModel string
	client     *http.Client
	timeout    time.Duration
	debug      bool
}

// New constructs a Provider for one configured backend.
func New(cfg appconfig.Provider, timeout time.Duration, debug bool) *Provider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Provider{
		name:       cfg.Name,
		baseURL:    baseURL,
		chatModel:  orDefault(cfg.ChatModel, defaultChatModel),
		embedModel: orDefault(cfg.EmbedModel, defaultEmbedModel),
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
		debug:   debug,
	}
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

func (p *Provider) Name() string { return p.name }

// Embed requests an embedding vector from /api/embeddings.
func (p *Provider) Embed(ctx context.Context, text string) (providers.Embedding, error) {
	payload := map[string]any{
		"model":  p.embedModel,
		"prompt": text,
	}
	raw, err := p.post(ctx, "/api/embeddings", payload)
	if err != nil {
		return providers.Embedding{}, err
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return providers.Embedding{}, fmt.Errorf("ollama: parse embedding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return providers.Embedding{}, fmt.Errorf("ollama: embedding: %w", providers.ErrEmptyResponse)
	}
	return providers.Embedding{
		Vector: parsed.Embedding,
		Tokens: providers.EstimateTokens(text),
	}, nil
}

// Chat issues a non-streaming /api/chat request.
func (p *Provider) Chat(ctx context.Context, messages []providers.ChatMessage) (string, error) {
	if len(messages) == 0 {
		messages = []providers.ChatMessage{}
	}
	payload := map[string]any{
		"model":    p.chatModel,
		"messages": messages,
		"stream":   false,
	}
	raw, err := p.post(ctx, "/api/chat", payload)
	if err != nil {
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("ollama: parse chat response: %w", err)
	}
	content := strings.TrimSpace(result.Message.Content)
	if content == "" {
		return "", fmt.Errorf("ollama: chat: %w", providers.ErrEmptyResponse)
	}
	return content, nil
}

// Close cleans up any resources used by the provider.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *Provider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal %s request: %w", path, err)
	}
	if p.debug {
		logging.LogEvent("ollama %s -> %s%s %s", p.name, p.baseURL, path, body)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read %s response: %w", path, err)
	}
	if p.debug {
		logging.LogEvent("ollama %s <- %s %s", p.name, resp.Status, raw)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: %s returned %s: %s", path, resp.Status, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
