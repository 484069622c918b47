// Package dispatcher runs one tool invocation from request envelope to
// result envelope. Every path through Invoke ends in exactly one
// protocol.CallToolResult; no fault escapes to the transport.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/registry"
	"github.com/mwiater/toolflow/internal/schema"
)

const unknownTool = "unknown"

// envelopeShape is the contract of an incoming CallToolRequest.
var envelopeShape = schema.MustCompile(schema.Object(
	schema.Optional("requestId", schema.String().MinLen(1)),
	schema.Required("toolId", schema.String().MinLen(1)),
	schema.Optional("input", schema.Any()),
))

// Observer receives one callback per finished invocation. code is empty on
// success.
type Observer interface {
	ObserveInvocation(toolID string, code protocol.ErrorCode, elapsed time.Duration)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithIDGenerator replaces the requestId generator.
func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) { d.newID = newID }
}

// WithObserver attaches an invocation observer such as the metrics collector.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// Dispatcher resolves and executes tools from a sealed registry.
type Dispatcher struct {
	registry *registry.Registry
	now      func() time.Time
	newID    func() string
	observer Observer
}

// New returns a dispatcher over reg.
func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tools lists every registered descriptor in registration order.
func (d *Dispatcher) Tools() []protocol.ToolDescriptor {
	return d.registry.List()
}

// InvokeJSON parses a raw request envelope and invokes it. A body that is not
// a valid envelope yields a ValidationError result without resolving a tool.
func (d *Dispatcher) InvokeJSON(ctx context.Context, raw []byte) protocol.CallToolResult {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		requestID := d.newID()
		fault := protocol.Validation("request body is not valid JSON", map[string]any{"reason": err.Error()})
		return d.fail(requestID, "", fault, nil, time.Time{})
	}
	return d.InvokeValue(ctx, payload)
}

// InvokeValue validates a decoded envelope and invokes it.
func (d *Dispatcher) InvokeValue(ctx context.Context, payload any) protocol.CallToolResult {
	normalized, err := envelopeShape.Validate(payload)
	if err != nil {
		requestID, toolID := salvageIDs(payload)
		if requestID == "" {
			requestID = d.newID()
		}
		fault := protocol.Validation("malformed request envelope", validationDetails(err))
		return d.fail(requestID, toolID, fault, nil, time.Time{})
	}

	var req protocol.CallToolRequest
	if err := schema.Decode(normalized, &req); err != nil {
		fault := protocol.Validation("malformed request envelope", map[string]any{"reason": err.Error()})
		return d.fail(d.newID(), "", fault, nil, time.Time{})
	}
	return d.Invoke(ctx, req)
}

// Invoke runs the dispatch state machine for req.
func (d *Dispatcher) Invoke(ctx context.Context, req protocol.CallToolRequest) protocol.CallToolResult {
	requestID := req.RequestID
	if requestID == "" {
		requestID = d.newID()
	}
	if req.ToolID == "" {
		fault := protocol.Validation("malformed request envelope", map[string]any{
			"issues": []schema.FieldError{{Path: "toolId", Rule: "required", Expected: "present", Actual: "missing", Message: "toolId is required"}},
		})
		return d.fail(requestID, "", fault, nil, time.Time{})
	}

	logging.LogRequest("in", requestID, req.ToolID, req.Input)

	entry, err := d.registry.Resolve(req.ToolID)
	if err != nil {
		fault := protocol.NewFault(protocol.CodeToolNotFound, fmt.Sprintf("Unknown tool: %s", req.ToolID), err).
			WithDetails(map[string]any{"toolId": req.ToolID})
		return d.fail(requestID, req.ToolID, fault, nil, time.Time{})
	}

	input, err := entry.Input.Validate(req.Input)
	if err != nil {
		fault := protocol.Validation("input does not match the tool's input schema", validationDetails(err))
		return d.fail(requestID, req.ToolID, fault, nil, time.Time{})
	}

	start := d.now()
	output, err := invokeHandler(ctx, entry.Handler, input)
	if err != nil {
		return d.fail(requestID, req.ToolID, classify(err), err, start)
	}

	validated, err := entry.Output.Validate(output)
	if err != nil {
		fault := protocol.NewFault(protocol.CodeOutputContract, "tool output violated its declared schema", err).
			WithDetails(contractDetails(err))
		return d.fail(requestID, req.ToolID, fault, withIssues(err), start)
	}

	finished := d.now()
	elapsed := finished.Sub(start)
	result := protocol.Success(requestID, req.ToolID, validated, elapsed, finished)
	d.observe(req.ToolID, "", elapsed)
	logging.LogRequest("out", requestID, req.ToolID, result.Metadata.Status)
	return result
}

func (d *Dispatcher) fail(requestID, toolID string, fault *protocol.Fault, cause error, start time.Time) protocol.CallToolResult {
	finished := d.now()
	if cause == nil {
		cause = fault
	}
	logging.LogFault(string(fault.Code), requestID, toolID, cause)

	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = finished.Sub(start)
	}
	d.observe(toolID, fault.Code, elapsed)
	return protocol.Failure(requestID, toolID, fault, finished)
}

// observe reports under the registered tool id only. Ids that do not resolve
// are caller input and share the "unknown" label.
func (d *Dispatcher) observe(toolID string, code protocol.ErrorCode, elapsed time.Duration) {
	if d.observer == nil {
		return
	}
	if _, err := d.registry.Resolve(toolID); err != nil {
		toolID = unknownTool
	}
	d.observer.ObserveInvocation(toolID, code, elapsed)
}

// invokeHandler converts a handler panic into an ordinary error.
func invokeHandler(ctx context.Context, h protocol.Handler, input any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, input)
}

// classify maps a handler error to the fault returned to the caller. Errors
// without a classification become HandlerFault with a generic message.
func classify(err error) *protocol.Fault {
	if fault, ok := protocol.AsFault(err); ok {
		return fault
	}
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return protocol.Validation("input rejected by tool", validationDetails(ve))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return protocol.NewFault(protocol.CodeHandlerFault, "tool execution was cancelled", err)
	}
	return protocol.NewFault(protocol.CodeHandlerFault, "tool execution failed", err)
}

func validationDetails(err error) map[string]any {
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return map[string]any{"issues": ve.Fields}
	}
	return map[string]any{"reason": err.Error()}
}

// contractIssue is the caller-facing part of an output schema failure. The
// offending values stay in the log.
type contractIssue struct {
	Path string `json:"path"`
	Rule string `json:"rule"`
}

func contractDetails(err error) map[string]any {
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	issues := make([]contractIssue, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		issues = append(issues, contractIssue{Path: f.Path, Rule: f.Rule})
	}
	return map[string]any{"issues": issues}
}

// withIssues attaches the full field errors to err for LogFault.
func withIssues(err error) error {
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	raw, jerr := json.Marshal(ve.Fields)
	if jerr != nil {
		return err
	}
	return fmt.Errorf("%w issues=%s", err, raw)
}

// salvageIDs recovers correlation ids from an envelope that failed validation.
func salvageIDs(payload any) (requestID, toolID string) {
	m, ok := payload.(map[string]any)
	if !ok {
		return "", ""
	}
	requestID, _ = m["requestId"].(string)
	toolID, _ = m["toolId"].(string)
	return requestID, toolID
}
