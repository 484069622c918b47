// Package stub is a deterministic in-process provider. It needs no network and
// counts every call, which makes it the provider of choice for tests and for
// offline runs configured with type "stub".
package stub

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/mwiater/toolflow/internal/providers"
)

// DefaultDimension is the vector width used when New is given zero.
const DefaultDimension = 8

// Provider returns fixed or hash-derived embeddings and scripted chat replies.
type Provider struct {
	name string
	dim  int

	mu         sync.Mutex
	vectors    map[string][]float64
	reply      func(messages []providers.ChatMessage) (string, error)
	embedErr   error
	failAfter  int
	embedCalls int
	chatCalls  int
	prompts    []string
}

// New returns a stub named name producing dim-wide vectors.
func New(name string, dim int) *Provider {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Provider{
		name:      name,
		dim:       dim,
		vectors:   make(map[string][]float64),
		failAfter: -1,
		reply: func(messages []providers.ChatMessage) (string, error) {
			if len(messages) == 0 {
				return "stub reply", nil
			}
			return "stub reply: " + firstLine(messages[len(messages)-1].Content), nil
		},
	}
}

// SetVector pins the embedding returned for text.
func (p *Provider) SetVector(text string, vec []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vectors[text] = append([]float64(nil), vec...)
}

// SetReply makes Chat return reply.
func (p *Provider) SetReply(reply string) {
	p.SetChatFunc(func([]providers.ChatMessage) (string, error) { return reply, nil })
}

// SetChatFunc replaces the chat behaviour.
func (p *Provider) SetChatFunc(fn func(messages []providers.ChatMessage) (string, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reply = fn
}

// FailEmbeddingsAfter lets n embed calls succeed, then returns err.
func (p *Provider) FailEmbeddingsAfter(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAfter = n
	p.embedErr = err
}

// EmbedCalls returns the number of Embed calls so far.
func (p *Provider) EmbedCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedCalls
}

// ChatCalls returns the number of Chat calls so far.
func (p *Provider) ChatCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chatCalls
}

// Prompts returns the final message content of every Chat call.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Embed(ctx context.Context, text string) (providers.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return providers.Embedding{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.embedCalls++
	if p.failAfter >= 0 && p.embedCalls > p.failAfter {
		return providers.Embedding{}, p.embedErr
	}
	vec, ok := p.vectors[text]
	if !ok {
		vec = hashVector(text, p.dim)
	}
	return providers.Embedding{
		Vector: append([]float64(nil), vec...),
		Tokens: providers.EstimateTokens(text),
	}, nil
}

func (p *Provider) Chat(ctx context.Context, messages []providers.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.chatCalls++
	if len(messages) > 0 {
		p.prompts = append(p.prompts, messages[len(messages)-1].Content)
	}
	reply := p.reply
	p.mu.Unlock()
	return reply(messages)
}

func (p *Provider) Close() error { return nil }

// hashVector derives a stable pseudo-embedding in [-1, 1] per component.
func hashVector(text string, dim int) []float64 {
	vec := make([]float64, dim)
	for i := range vec {
		h := fnv.New64a()
		fmt.Fprintf(h, "%d:%s", i, text)
		vec[i] = float64(h.Sum64()%2001)/1000 - 1
	}
	return vec
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
