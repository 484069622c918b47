package tools

import (
	"context"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/schema"
)

// EchoName is the id of the echo tool.
const EchoName = "echo.v1"

type echoInput struct {
	Text string `json:"text"`
}

type echoOutput struct {
	Echoed string `json:"echoed"`
}

// EchoDescriptor describes the echo tool.
func EchoDescriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		ToolID:       EchoName,
		Name:         "Echo",
		Description:  "Returns the same text sent in the input.",
		Version:      "1.0.0",
		InputSchema:  schema.Object(schema.Required("text", schema.String())),
		OutputSchema: schema.Object(schema.Required("echoed", schema.String())),
		Tags:         []string{"utility"},
	}
}

// Echo returns the echo module.
func Echo() Module {
	return Module{
		Descriptor: EchoDescriptor(),
		Handler: protocol.Typed(func(_ context.Context, in echoInput) (echoOutput, error) {
			return echoOutput{Echoed: in.Text}, nil
		}),
	}
}
