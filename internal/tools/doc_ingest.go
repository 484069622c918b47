package tools

import (
	"context"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/rag"
	"github.com/mwiater/toolflow/internal/schema"
)

// Ingest tool ids.
const (
	IngestTextName = "doc.ingestText.v1"
	IngestPathName = "doc.ingestPath.v1"
)

type ingestTextInput struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Provider  string `json:"provider"`
	ChunkSize int    `json:"chunkSize"`
	Overlap   int    `json:"overlap"`
}

type ingestPathInput struct {
	FilePath  string `json:"filePath"`
	Provider  string `json:"provider"`
	ChunkSize int    `json:"chunkSize"`
	Overlap   int    `json:"overlap"`
}

// IngestText returns the module that chunks, embeds and stores raw text.
func IngestText(deps Deps) Module {
	desc := protocol.ToolDescriptor{
		ToolID:      IngestTextName,
		Name:        "Ingest Text",
		Description: "Splits text into overlapping word chunks, embeds each chunk and stores them under one source id.",
		Version:     "1.0.0",
		InputSchema: schema.Object(
			schema.Required("text", schema.String().MinLen(1)),
			schema.Optional("id", schema.String().MinLen(1).Describe("Source id; generated when omitted")),
			providerField(deps),
			chunkSizeField(deps),
			overlapField(deps),
		),
		OutputSchema: ingestOutput,
		Tags:         []string{"rag", "chunking", "ai"},
	}

	handler := protocol.Typed(func(ctx context.Context, in ingestTextInput) (rag.IngestResult, error) {
		return deps.Pipeline.Ingest(ctx, rag.IngestRequest{
			ID:        in.ID,
			Text:      in.Text,
			Provider:  in.Provider,
			ChunkSize: in.ChunkSize,
			Overlap:   in.Overlap,
		})
	})
	return Module{Descriptor: desc, Handler: handler}
}

// IngestPath returns the module that ingests a local plain-text file.
func IngestPath(deps Deps) Module {
	desc := protocol.ToolDescriptor{
		ToolID:      IngestPathName,
		Name:        "Ingest File",
		Description: "Reads a local .txt or .md file, splits it into chunks, embeds them and stores them in the vector store.",
		Version:     "1.3.1",
		InputSchema: schema.Object(
			schema.Required("filePath", schema.String().MinLen(1).Describe("Path to a local plain-text file")),
			providerField(deps),
			chunkSizeField(deps),
			overlapField(deps),
		),
		OutputSchema: ingestOutput,
		Tags:         []string{"rag", "filesystem", "ai", "chunking"},
	}

	handler := protocol.Typed(func(ctx context.Context, in ingestPathInput) (rag.IngestResult, error) {
		return deps.Pipeline.IngestFile(ctx, in.FilePath, rag.IngestRequest{
			Provider:  in.Provider,
			ChunkSize: in.ChunkSize,
			Overlap:   in.Overlap,
		})
	})
	return Module{Descriptor: desc, Handler: handler}
}
