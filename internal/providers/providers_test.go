package providers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/providers/stub"
)

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{"": 0, "a": 1, "abcd": 1, "abcde": 2, "héllo wörld": 3}
	for text, want := range cases {
		assert.Equal(t, want, providers.EstimateTokens(text), text)
	}
}

func TestSetRoutesByName(t *testing.T) {
	a, b := stub.New("openai", 4), stub.New("ollama", 4)
	set, err := providers.NewSet("ollama", a, b)
	require.NoError(t, err)

	p, err := set.Get("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = set.Get(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = set.Get("anthropic")
	assert.True(t, errors.Is(err, providers.ErrUnknownProvider))
	assert.Equal(t, []string{"openai", "ollama"}, set.Names())
	assert.NoError(t, set.Close())
}

func TestNewSetRejectsBadInput(t *testing.T) {
	_, err := providers.NewSet("x")
	assert.Error(t, err)

	_, err = providers.NewSet("missing", stub.New("a", 2))
	assert.ErrorIs(t, err, providers.ErrUnknownProvider)

	_, err = providers.NewSet("", stub.New("a", 2), stub.New("A", 2))
	assert.Error(t, err)
}

func TestQueryCache(t *testing.T) {
	ctx := context.Background()
	ollama := stub.New("ollama", 3)
	openai := stub.New("openai", 3)
	cache, err := providers.NewQueryCache(2)
	require.NoError(t, err)

	first, err := cache.Embed(ctx, ollama, "query")
	require.NoError(t, err)
	first.Vector[0] = 99

	second, err := cache.Embed(ctx, ollama, "query")
	require.NoError(t, err)
	assert.NotEqual(t, 99.0, second.Vector[0], "cached vectors must not alias caller slices")
	assert.Equal(t, 1, ollama.EmbedCalls())

	_, err = cache.Embed(ctx, openai, "query")
	require.NoError(t, err)
	assert.Equal(t, 1, openai.EmbedCalls(), "entries are keyed per provider")
	assert.Equal(t, 2, cache.Len())

	disabled, err := providers.NewQueryCache(0)
	require.NoError(t, err)
	assert.Nil(t, disabled)
	_, err = disabled.Embed(ctx, ollama, "query")
	require.NoError(t, err)
	_, err = disabled.Embed(ctx, ollama, "query")
	require.NoError(t, err)
	assert.Equal(t, 3, ollama.EmbedCalls())
}
