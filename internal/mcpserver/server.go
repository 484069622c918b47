// Package mcpserver serves the tool registry to MCP hosts over stdio using
// JSON-RPC 2.0 with Content-Length framing. Every tools/call goes through the
// same dispatcher as the HTTP transport and returns its result envelope.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mwiater/toolflow/internal/dispatcher"
	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/protocol"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

const protocolVersion = "2024-11-05"

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonrpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id,omitempty"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonrpcError `json:"error,omitempty"`
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	RequestID string         `json:"requestId,omitempty"`
}

// Tool is the MCP listing of one registered tool.
type Tool struct {
	Name         string   `json:"name"`
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description"`
	Version      string   `json:"version"`
	InputSchema  any      `json:"inputSchema"`
	OutputSchema any      `json:"outputSchema,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// ContentPart is one item of a tools/call result.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the tools/call result: the envelope rendered as JSON text.
type CallResult struct {
	Content []ContentPart `json:"content"`
	IsError bool          `json:"isError"`
}

// Server answers MCP requests from one dispatcher.
type Server struct {
	dispatcher *dispatcher.Dispatcher
	name       string
	version    string
}

// New returns an MCP server identifying itself as name/version.
func New(d *dispatcher.Dispatcher, name, version string) *Server {
	return &Server{dispatcher: d, name: name, version: version}
}

// Serve processes frames from r until EOF or ctx is cancelled. A framing error
// is reported once and ends the session since the stream cannot be resynced.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := readFrame(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			_ = writeMessage(bw, makeError(nil, codeServerError, err.Error()))
			return err
		}

		var req jsonrpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			if werr := writeMessage(bw, makeError(nil, codeParseError, "Parse error")); werr != nil {
				return werr
			}
			continue
		}

		resp, ok := s.handle(ctx, &req)
		if !ok {
			continue
		}
		if err := writeMessage(bw, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// handle returns the response for req, or false for notifications.
func (s *Server) handle(ctx context.Context, req *jsonrpcRequest) (jsonrpcResponse, bool) {
	if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
		return jsonrpcResponse{}, false
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return makeError(req.ID, codeInvalidRequest, "Invalid Request"), true
	}

	switch req.Method {
	case "initialize":
		return makeResult(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"serverInfo":      map[string]any{"name": s.name, "version": s.version},
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
		}), true

	case "ping":
		return makeResult(req.ID, map[string]any{}), true

	case "tools/list":
		return makeResult(req.ID, map[string]any{"tools": s.tools()}), true

	case "tools/call":
		var p toolsCallParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return makeError(req.ID, codeInvalidParams, "Invalid params"), true
			}
		}
		if strings.TrimSpace(p.Name) == "" {
			return makeError(req.ID, codeInvalidParams, "Invalid params: name is required"), true
		}
		if p.Arguments == nil {
			p.Arguments = map[string]any{}
		}
		result, err := s.call(ctx, p)
		if err != nil {
			return makeError(req.ID, codeServerError, err.Error()), true
		}
		return makeResult(req.ID, result), true
	}

	return makeError(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method)), true
}

func (s *Server) tools() []Tool {
	descs := s.dispatcher.Tools()
	out := make([]Tool, 0, len(descs))
	for _, d := range descs {
		out = append(out, Tool{
			Name:         d.ToolID,
			Title:        d.Name,
			Description:  d.Description,
			Version:      d.Version,
			InputSchema:  d.InputSchema.JSONSchema(),
			OutputSchema: d.OutputSchema.JSONSchema(),
			Tags:         d.Tags,
		})
	}
	return out
}

func (s *Server) call(ctx context.Context, p toolsCallParams) (CallResult, error) {
	logging.LogEvent("[MCP] tools/call %s", p.Name)
	res := s.dispatcher.Invoke(ctx, protocol.CallToolRequest{
		RequestID: p.RequestID,
		ToolID:    p.Name,
		Input:     p.Arguments,
	})
	data, err := json.Marshal(res)
	if err != nil {
		return CallResult{}, fmt.Errorf("encode result: %w", err)
	}
	return CallResult{
		Content: []ContentPart{{Type: "text", Text: string(data)}},
		IsError: res.IsError(),
	}, nil
}

func makeResult(id any, result any) jsonrpcResponse {
	return jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func makeError(id any, code int, msg string) jsonrpcResponse {
	return jsonrpcResponse{JSONRPC: "2.0", ID: id, Error: &jsonrpcError{Code: code, Message: msg}}
}
