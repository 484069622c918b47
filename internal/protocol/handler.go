package protocol

import (
	"context"

	"github.com/mwiater/toolflow/internal/schema"
)

// Typed adapts a strongly-typed function to a Handler. The normalized input is
// decoded into In; Out is returned as-is for output validation.
func Typed[In, Out any](fn func(ctx context.Context, in In) (Out, error)) Handler {
	return func(ctx context.Context, input any) (any, error) {
		var in In
		if err := schema.Decode(input, &in); err != nil {
			return nil, NewFault(CodeHandlerFault, "input could not be bound to the tool's parameters", err)
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}
