package tools

import (
	"context"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/rag"
	"github.com/mwiater/toolflow/internal/schema"
)

// AddDocName is the id of the single-document ingest tool.
const AddDocName = "rag.addDoc"

type addDocInput struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

type addDocOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// AddDoc returns the module that embeds one text as a single document.
func AddDoc(deps Deps) Module {
	desc := protocol.ToolDescriptor{
		ToolID:      AddDocName,
		Name:        "Add Document",
		Description: "Embeds a text as one document and stores it in the vector store.",
		Version:     "1.0.0",
		InputSchema: schema.Object(
			schema.Required("text", schema.String().MinLen(10)),
			providerField(deps),
		),
		OutputSchema: schema.Object(
			schema.Required("id", schema.String().MinLen(1)),
			schema.Required("status", schema.String().Literal(rag.StatusAdded)),
		),
		Tags: []string{"rag", "vector"},
	}

	handler := protocol.Typed(func(ctx context.Context, in addDocInput) (addDocOutput, error) {
		id, err := deps.Pipeline.AddDoc(ctx, in.Text, in.Provider)
		if err != nil {
			return addDocOutput{}, err
		}
		return addDocOutput{ID: id, Status: rag.StatusAdded}, nil
	})
	return Module{Descriptor: desc, Handler: handler}
}
