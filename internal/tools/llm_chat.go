package tools

import (
	"context"
	"strings"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/schema"
)

// LLMChatName is the id of the single-turn chat tool.
const LLMChatName = "llm.chat"

type chatInput struct {
	Prompt   string `json:"prompt"`
	Provider string `json:"provider"`
}

type chatOutput struct {
	Completion string `json:"completion"`
}

// LLMChat returns the chat module.
func LLMChat(deps Deps) Module {
	desc := protocol.ToolDescriptor{
		ToolID:      LLMChatName,
		Name:        "LLM Chat",
		Description: "Single-turn chat completion via OpenAI or Ollama.",
		Version:     "1.0.0",
		InputSchema: schema.Object(
			schema.Required("prompt", schema.String().MinLen(1)),
			providerField(deps),
		),
		OutputSchema: schema.Object(schema.Required("completion", schema.String())),
		Tags:         []string{"llm"},
	}

	handler := protocol.Typed(func(ctx context.Context, in chatInput) (chatOutput, error) {
		prov, err := deps.Providers.Get(in.Provider)
		if err != nil {
			return chatOutput{}, unknownProvider(deps, in.Provider)
		}
		reply, err := prov.Chat(ctx, providers.UserPrompt(in.Prompt))
		if err != nil {
			return chatOutput{}, protocol.ProviderFault(prov.Name(), err)
		}
		return chatOutput{Completion: strings.TrimSpace(reply)}, nil
	})
	return Module{Descriptor: desc, Handler: handler}
}

func unknownProvider(deps Deps, name string) *protocol.Fault {
	return protocol.Validation("unknown provider "+name, map[string]any{
		"provider":  name,
		"available": deps.Providers.Names(),
	})
}
