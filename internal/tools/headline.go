package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/schema"
)

// HeadlineName is the id of the headline generator.
const HeadlineName = "headline.generator.v1"

const headlineSystemPrompt = "You are a creative marketing copywriter. Generate punchy, concise headlines."

type headlineInput struct {
	Text     string `json:"text"`
	Tone     string `json:"tone"`
	Provider string `json:"provider"`
}

type headlineOutput struct {
	Headline string `json:"headline"`
}

// Headline returns the headline generator module.
func Headline(deps Deps) Module {
	desc := protocol.ToolDescriptor{
		ToolID:      HeadlineName,
		Name:        "Headline Generator",
		Description: "Generates a catchy headline for the given text, optionally in a requested tone.",
		Version:     "1.0.0",
		InputSchema: schema.Object(
			schema.Required("text", schema.String().MinLen(1)),
			schema.Optional("tone", schema.String().Describe("e.g. playful, formal, urgent")),
			providerField(deps),
		),
		OutputSchema: schema.Object(schema.Required("headline", schema.String())),
		Tags:         []string{"ai", "prompt-engineering", "marketing"},
	}

	handler := protocol.Typed(func(ctx context.Context, in headlineInput) (headlineOutput, error) {
		prov, err := deps.Providers.Get(in.Provider)
		if err != nil {
			return headlineOutput{}, unknownProvider(deps, in.Provider)
		}
		messages := providers.WithSystem(headlineSystemPrompt, providers.UserPrompt(headlinePrompt(in.Text, in.Tone)))
		reply, err := prov.Chat(ctx, messages)
		if err != nil {
			return headlineOutput{}, protocol.ProviderFault(prov.Name(), err)
		}
		return headlineOutput{Headline: strings.TrimSpace(reply)}, nil
	})
	return Module{Descriptor: desc, Handler: handler}
}

func headlinePrompt(text, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is some text:\n\n\"%s\"", text)
	if tone = strings.TrimSpace(tone); tone != "" {
		fmt.Fprintf(&b, "\n\nWrite a headline in a %s tone.", tone)
	}
	b.WriteString("\n\nHeadline:")
	return b.String()
}
