package tools

import (
	"context"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/rag"
	"github.com/mwiater/toolflow/internal/schema"
)

// SearchName is the id of the retrieval-augmented answer tool.
const SearchName = "rag.search"

type searchInput struct {
	Query    string `json:"query"`
	Provider string `json:"provider"`
	TopK     int    `json:"topK"`
}

// Search returns the module that answers a question from the vector store.
func Search(deps Deps) Module {
	desc := protocol.ToolDescriptor{
		ToolID:      SearchName,
		Name:        "RAG Search",
		Description: "Retrieves the most similar stored chunks and answers the query using only them.",
		Version:     "1.0.0",
		InputSchema: schema.Object(
			schema.Required("query", schema.String().MinLen(1)),
			providerField(deps),
			schema.Optional("topK", schema.Integer().Min(1).Max(10).WithDefault(deps.Pipeline.Options().TopK)),
		),
		OutputSchema: schema.Object(
			schema.Required("answer", schema.String()),
			schema.Required("docs", schema.ArrayOf(schema.Object(
				schema.Required("id", schema.String()),
				schema.Required("text", schema.String()),
				schema.Required("score", schema.Number().Min(-1).Max(1)),
			))),
		),
		Tags: []string{"rag", "search"},
	}

	handler := protocol.Typed(func(ctx context.Context, in searchInput) (rag.SearchResult, error) {
		return deps.Pipeline.Search(ctx, in.Query, in.Provider, in.TopK)
	})
	return Module{Descriptor: desc, Handler: handler}
}
