// Package providers defines the embed and chat capabilities the RAG pipeline
// and the chat tools consume, independent of which backend serves them.
package providers

import (
	"context"
	"errors"
	"unicode/utf8"
)

// ErrUnknownProvider is returned when a provider name is not configured.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrEmptyResponse is returned when a backend answers without usable content.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Embedding is a vector plus the token usage of the text that produced it.
type Embedding struct {
	Vector []float64
	Tokens int
}

// Provider is the interface every embedding/chat backend implements.
type Provider interface {
	// Name is the configured provider name, also the embedding space key.
	Name() string
	// Embed returns the embedding of text.
	Embed(ctx context.Context, text string) (Embedding, error)
	// Chat sends messages and returns the assistant reply.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
	// Close cleans up any resources used by the provider.
	Close() error
}

// EstimateTokens approximates token usage as ceil(characters / 4) for
// backends that do not report it.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// UserPrompt wraps a single prompt as a chat history.
func UserPrompt(prompt string) []ChatMessage {
	return []ChatMessage{{Role: "user", Content: prompt}}
}

// WithSystem prepends a system prompt when it is non-empty.
func WithSystem(system string, messages []ChatMessage) []ChatMessage {
	if system == "" {
		return messages
	}
	return append([]ChatMessage{{Role: "system", Content: system}}, messages...)
}
