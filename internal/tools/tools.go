// Package tools defines the tool modules exposed by the registry. Each module
// is a descriptor plus a handler; RegisterAll installs them in a fixed order.
package tools

import (
	"fmt"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/rag"
	"github.com/mwiater/toolflow/internal/registry"
	"github.com/mwiater/toolflow/internal/schema"
)

// Deps are the collaborators shared by the tool handlers.
type Deps struct {
	Providers *providers.Set
	Pipeline  *rag.Pipeline
}

// Module is one registrable tool.
type Module struct {
	Descriptor protocol.ToolDescriptor
	Handler    protocol.Handler
}

// Modules builds every tool module against deps, in registration order.
func Modules(deps Deps) []Module {
	return []Module{
		Echo(),
		LLMChat(deps),
		Headline(deps),
		AddDoc(deps),
		IngestText(deps),
		IngestPath(deps),
		Search(deps),
	}
}

// RegisterAll registers every module. Any rejected registration aborts, so a
// duplicate id surfaces at startup.
func RegisterAll(reg *registry.Registry, deps Deps) error {
	if deps.Providers == nil || deps.Pipeline == nil {
		return fmt.Errorf("tools: providers and pipeline are required")
	}
	for _, m := range Modules(deps) {
		if err := reg.Register(m.Descriptor, m.Handler); err != nil {
			return err
		}
	}
	return nil
}

// providerField is the optional provider selector shared by the AI tools,
// constrained to the configured provider names.
func providerField(deps Deps) schema.Field {
	names := deps.Providers.Names()
	values := make([]any, 0, len(names))
	for _, name := range names {
		values = append(values, name)
	}
	return schema.Optional("provider", schema.String().OneOf(values...).
		WithDefault(deps.Providers.Default()).
		Describe("Embedding and chat backend"))
}

func chunkSizeField(deps Deps) schema.Field {
	return schema.Optional("chunkSize", schema.Integer().Min(50).Max(1000).
		WithDefault(deps.Pipeline.Options().ChunkSize).
		Describe("Words per chunk"))
}

func overlapField(deps Deps) schema.Field {
	return schema.Optional("overlap", schema.Integer().Min(0).Max(500).
		WithDefault(deps.Pipeline.Options().Overlap).
		Describe("Words shared by consecutive chunks"))
}

var ingestOutput = schema.Object(
	schema.Required("id", schema.String()),
	schema.Required("tokens", schema.Integer().Min(0)),
	schema.Required("chunks", schema.Integer().Min(0)),
	schema.Required("status", schema.String().OneOf(rag.StatusAdded, rag.StatusFailed)),
)
