// Package protocol defines the tool invocation wire types: descriptors,
// request and result envelopes, and the error taxonomy shared by every
// transport.
package protocol

import (
	"context"
	"time"

	"github.com/mwiater/toolflow/internal/schema"
)

// Status is the metadata.status value of a result envelope.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ToolDescriptor is the identity and contract of one tool.
type ToolDescriptor struct {
	ToolID       string       `json:"toolId" yaml:"toolId"`
	Name         string       `json:"name" yaml:"name"`
	Description  string       `json:"description" yaml:"description"`
	Version      string       `json:"version" yaml:"version"`
	InputSchema  schema.Shape `json:"inputSchema" yaml:"inputSchema"`
	OutputSchema schema.Shape `json:"outputSchema" yaml:"outputSchema"`
	Tags         []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Handler executes a tool. input is the normalized value produced by input
// validation; the returned value is validated against the output schema.
type Handler func(ctx context.Context, input any) (any, error)

// CallToolRequest is the invoke envelope.
type CallToolRequest struct {
	RequestID string `json:"requestId,omitempty"`
	ToolID    string `json:"toolId"`
	Input     any    `json:"input"`
}

// Metadata accompanies every result envelope.
type Metadata struct {
	DurationMs *int64 `json:"durationMs,omitempty"`
	Timestamp  string `json:"timestamp"`
	Status     Status `json:"status"`
}

// ToolError is the error member of a failed result.
type ToolError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// CallToolResult is either a success or an error envelope. Build it with
// Success or Failure so exactly one variant is populated.
type CallToolResult struct {
	RequestID string     `json:"requestId"`
	ToolID    string     `json:"toolId"`
	Output    any        `json:"output,omitempty"`
	Metadata  Metadata   `json:"metadata"`
	Error     *ToolError `json:"error,omitempty"`
}

// Success builds a success envelope.
func Success(requestID, toolID string, output any, duration time.Duration, at time.Time) CallToolResult {
	ms := duration.Milliseconds()
	return CallToolResult{
		RequestID: requestID,
		ToolID:    toolID,
		Output:    output,
		Metadata: Metadata{
			DurationMs: &ms,
			Timestamp:  FormatTimestamp(at),
			Status:     StatusSuccess,
		},
	}
}

// Failure builds an error envelope from a fault.
func Failure(requestID, toolID string, fault *Fault, at time.Time) CallToolResult {
	return CallToolResult{
		RequestID: requestID,
		ToolID:    toolID,
		Metadata: Metadata{
			Timestamp: FormatTimestamp(at),
			Status:    StatusError,
		},
		Error: &ToolError{
			Code:    fault.Code,
			Message: fault.Message,
			Details: fault.Details,
		},
	}
}

// IsError reports whether r is the error variant.
func (r CallToolResult) IsError() bool {
	return r.Error != nil
}

// FormatTimestamp renders t the way envelopes carry it (UTC, millisecond ISO-8601).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
