package rag

import (
	"context"
	"strings"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/providers"
)

// NoInformationAnswer is returned instead of calling chat when retrieval
// finds nothing.
const NoInformationAnswer = "No relevant information found in the knowledge base."

// RetrievedDoc is a retrieved chunk with its similarity score.
type RetrievedDoc struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SearchResult is the answer plus the documents it was grounded on.
type SearchResult struct {
	Answer string         `json:"answer"`
	Docs   []RetrievedDoc `json:"docs"`
}

// Retrieve embeds query and returns the top k documents of the same provider.
// k <= 0 uses the configured default.
func (p *Pipeline) Retrieve(ctx context.Context, query, provider string, k int) ([]RetrievedDoc, error) {
	if k <= 0 {
		k = p.opts.TopK
	}
	prov, err := p.provider(provider)
	if err != nil {
		return nil, err
	}
	emb, err := p.opts.QueryCache.Embed(ctx, prov, query)
	if err != nil {
		return nil, protocol.ProviderFault(prov.Name(), err)
	}

	results, err := p.store.Query(ctx, emb.Vector, prov.Name(), k)
	if err != nil {
		return nil, storeFault(prov.Name(), err)
	}

	docs := make([]RetrievedDoc, 0, len(results))
	for _, r := range results {
		docs = append(docs, RetrievedDoc{ID: r.Document.ID, Text: r.Document.Text, Score: r.Score})
	}
	return docs, nil
}

// Search retrieves context for query and asks the provider's chat model to
// answer from it. With no documents the fixed NoInformationAnswer is returned
// and chat is never called.
func (p *Pipeline) Search(ctx context.Context, query, provider string, k int) (SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return SearchResult{}, protocol.Validation("query is empty", nil)
	}
	docs, err := p.Retrieve(ctx, query, provider, k)
	if err != nil {
		return SearchResult{}, err
	}
	if len(docs) == 0 {
		return SearchResult{Answer: NoInformationAnswer, Docs: []RetrievedDoc{}}, nil
	}

	prov, err := p.provider(provider)
	if err != nil {
		return SearchResult{}, err
	}
	prompt := BuildPrompt(FormatContext(docs, p.opts.ContextCharLimit), query)
	answer, err := prov.Chat(ctx, providers.UserPrompt(prompt))
	if err != nil {
		return SearchResult{}, protocol.ProviderFault(prov.Name(), err)
	}
	return SearchResult{Answer: strings.TrimSpace(answer), Docs: docs}, nil
}
