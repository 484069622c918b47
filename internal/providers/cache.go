package providers

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

type queryKey struct {
	provider string
	text     string
}

// QueryCache memoizes query embeddings by provider name and exact text.
// Ingest bypasses it so document chunks never evict repeated queries.
type QueryCache struct {
	cache *lru.Cache[queryKey, Embedding]
}

// NewQueryCache returns a cache holding size entries. size <= 0 returns a nil
// cache, whose Embed calls the provider directly.
func NewQueryCache(size int) (*QueryCache, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := lru.New[queryKey, Embedding](size)
	if err != nil {
		return nil, err
	}
	return &QueryCache{cache: cache}, nil
}

// Embed returns the cached embedding of text for p, embedding on a miss.
// Returned vectors never alias cache entries.
func (c *QueryCache) Embed(ctx context.Context, p Provider, text string) (Embedding, error) {
	if c == nil {
		return p.Embed(ctx, text)
	}
	key := queryKey{provider: p.Name(), text: text}
	if hit, ok := c.cache.Get(key); ok {
		return Embedding{Vector: append([]float64(nil), hit.Vector...), Tokens: hit.Tokens}, nil
	}
	emb, err := p.Embed(ctx, text)
	if err != nil {
		return Embedding{}, err
	}
	c.cache.Add(key, Embedding{Vector: append([]float64(nil), emb.Vector...), Tokens: emb.Tokens})
	return emb, nil
}

// Len reports the number of cached queries.
func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
