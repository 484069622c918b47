// Package llamacpp provides a providers.Provider backed by llama.cpp's
// OpenAI-compatible HTTP server.
package llamacpp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/providers"
)

const defaultURL = "http://localhost:8080"

// Provider talks to a single llama-server instance. Chat replies are
// streamed over server-sent events and assembled before returning.
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
		chatModel:  strings.TrimSpace(cfg.ChatModel),
		embedModel: strings.TrimSpace(cfg.EmbedModel),
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
		debug:   debug,
	}
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *Provider) Name() string { return p.name }

// Embed requests a vector from /v1/embeddings. The server must be started
// with --embedding.
func (p *Provider) Embed(ctx context.Context, text string) (providers.Embedding, error) {
	payload := map[string]any{"input": text}
	if p.embedModel != "" {
		payload["model"] = p.embedModel
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.post(ctx, "/v1/embeddings", payload, false)
	if err != nil {
		return providers.Embedding{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Embedding{}, fmt.Errorf("llama.cpp: read embedding response: %w", err)
	}
	p.trace("<- %s", raw)

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return providers.Embedding{}, fmt.Errorf("llama.cpp: parse embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return providers.Embedding{}, fmt.Errorf("llama.cpp: embedding: %w", providers.ErrEmptyResponse)
	}
	tokens := parsed.Usage.PromptTokens
	if tokens <= 0 {
		tokens = providers.EstimateTokens(text)
	}
	return providers.Embedding{Vector: parsed.Data[0].Embedding, Tokens: tokens}, nil
}

// Chat streams /v1/chat/completions and returns the concatenated deltas.
func (p *Provider) Chat(ctx context.Context, messages []providers.ChatMessage) (string, error) {
	payload := map[string]any{
		"messages": toOpenAIMessages(sanitizeMessages(messages)),
		"stream":   true,
	}
	if p.chatModel != "" {
		payload["model"] = p.chatModel
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.post(ctx, "/v1/chat/completions", payload, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var reply string
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		reply, err = p.readStream(resp.Body)
	} else {
		reply, err = p.readReply(resp.Body)
	}
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("llama.cpp: chat: %w", providers.ErrEmptyResponse)
	}
	return reply, nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// readStream accumulates delta content from an SSE body until [DONE] or EOF.
func (p *Provider) readStream(body io.Reader) (string, error) {
	reader := bufio.NewReader(body)
	var out strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("llama.cpp: read chat stream: %w", err)
		}
		eof := err != nil

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				break
			}
			p.trace("<- %s", data)
			var chunk chatStreamChunk
			if jerr := json.Unmarshal([]byte(data), &chunk); jerr != nil {
				return "", fmt.Errorf("llama.cpp: parse chat chunk: %w", jerr)
			}
			writeChoices(&out, chunk)
		}
		if eof {
			break
		}
	}
	return out.String(), nil
}

// readReply handles servers that ignore "stream" and answer with one JSON
// object.
func (p *Provider) readReply(body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("llama.cpp: read chat response: %w", err)
	}
	p.trace("<- %s", raw)
	var parsed chatStreamChunk
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("llama.cpp: parse chat response: %w", err)
	}
	var out strings.Builder
	writeChoices(&out, parsed)
	return out.String(), nil
}

func writeChoices(out *strings.Builder, chunk chatStreamChunk) {
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			out.WriteString(choice.Delta.Content)
		} else {
			out.WriteString(choice.Message.Content)
		}
	}
}

func (p *Provider) post(ctx context.Context, path string, payload any, stream bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llama.cpp: marshal %s request: %w", path, err)
	}
	p.trace("-> %s%s %s", p.baseURL, path, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llama.cpp: create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llama.cpp: %s request failed: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("llama.cpp: %s returned %s: %s", path, resp.Status, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

func (p *Provider) trace(format string, args ...any) {
	if p.debug {
		logging.LogEvent("llama.cpp %s "+format, append([]any{p.name}, args...)...)
	}
}

// sanitizeMessages trims content and drops empty non-assistant turns, which
// llama-server rejects.
func sanitizeMessages(messages []providers.ChatMessage) []providers.ChatMessage {
	sanitized := make([]providers.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		content := strings.TrimSpace(msg.Content)
		if role == "" {
			role = "user"
		}
		if role != "assistant" && content == "" {
			continue
		}
		sanitized = append(sanitized, providers.ChatMessage{Role: role, Content: content})
	}
	return sanitized
}

func toOpenAIMessages(messages []providers.ChatMessage) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, openAIMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}
