// Package openai provides a providers.Provider backed by the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/providers"
)

const (
	defaultChatModel  = "gpt-4o-mini"
	defaultEmbedModel = "text-embedding-3-small"
	defaultAPIKeyEnv  = "OPENAI_API_KEY"
)

var errMissingAPIKey = errors.New("api key is not set")

// Provider implements providers.Provider with openai-go.
type Provider struct {
	name       string
	client     openai.Client
	keyEnv     string
	hasKey     bool
	chatModel  string
	embedModel string
	debug      bool
}

// New builds a provider from config. The API key is read from the
// configured environment variable; a missing key is reported on first call.
func New(cfg appconfig.Provider, timeout time.Duration, debug bool, extra ...option.RequestOption) *Provider {
	keyEnv := strings.TrimSpace(cfg.APIKeyEnv)
	if keyEnv == "" {
		keyEnv = defaultAPIKeyEnv
	}
	apiKey := strings.TrimSpace(os.Getenv(keyEnv))

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if url := strings.TrimSpace(cfg.URL); url != "" {
		opts = append(opts, option.WithBaseURL(url))
	}
	opts = append(opts, extra...)

	return &Provider{
		name:       cfg.Name,
		client:     openai.NewClient(opts...),
		keyEnv:     keyEnv,
		hasKey:     apiKey != "",
		chatModel:  orDefault(cfg.ChatModel, defaultChatModel),
		embedModel: orDefault(cfg.EmbedModel, defaultEmbedModel),
		debug:      debug,
	}
}

func (p *Provider) Name() string { return p.name }

// Embed calls the embeddings endpoint. Reported usage is preferred over the
// character estimate.
func (p *Provider) Embed(ctx context.Context, text string) (providers.Embedding, error) {
	if !p.hasKey {
		return providers.Embedding{}, fmt.Errorf("openai: %w (%s)", errMissingAPIKey, p.keyEnv)
	}
	if p.debug {
		logging.LogEvent("openai %s -> embeddings model=%s chars=%d", p.name, p.embedModel, len(text))
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return providers.Embedding{}, fmt.Errorf("openai: embeddings: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return providers.Embedding{}, fmt.Errorf("openai: embeddings: %w", providers.ErrEmptyResponse)
	}

	tokens := int(resp.Usage.TotalTokens)
	if tokens <= 0 {
		tokens = providers.EstimateTokens(text)
	}
	return providers.Embedding{Vector: resp.Data[0].Embedding, Tokens: tokens}, nil
}

// Chat calls chat completions and returns the first choice.
func (p *Provider) Chat(ctx context.Context, messages []providers.ChatMessage) (string, error) {
	if !p.hasKey {
		return "", fmt.Errorf("openai: %w (%s)", errMissingAPIKey, p.keyEnv)
	}
	if p.debug {
		logging.LogEvent("openai %s -> chat model=%s messages=%d", p.name, p.chatModel, len(messages))
	}

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.chatModel),
		Messages: convertMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: chat: %w", providers.ErrEmptyResponse)
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai: chat: %w", providers.ErrEmptyResponse)
	}
	return content, nil
}

// Close cleans up any resources used by the provider.
func (p *Provider) Close() error { return nil }

func convertMessages(msgs []providers.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
