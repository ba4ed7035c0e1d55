// Package mcp speaks the gateway's JSON-RPC 2.0 endpoint (tools/list and
// tools/call on POST /mcp). It shares transport, headers and error types with
// the REST client.
package mcp

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	mcpapi "github.com/mark3labs/mcp-go/mcp"

	"github.com/toolgate/gateway-client/src/headers"
	"github.com/toolgate/gateway-client/src/json"
	gwhttp "github.com/toolgate/gateway-client/src/transports/http"
	"github.com/toolgate/gateway-client/src/tools"
)

// rpcRequest represents a JSON-RPC request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC response.
type rpcResponse struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      any                `json:"id,omitempty"`
	Result  stdjson.RawMessage `json:"result,omitempty"`
	Error   *rpcError          `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// toolError maps a JSON-RPC error onto the gateway's domain error shape.
// The gateway tucks its own error code into data.code.
func (e *rpcError) toolError() *tools.ToolError {
	te := &tools.ToolError{Code: fmt.Sprintf("%d", e.Code), Message: e.Message, Details: e.Data}
	if data, ok := e.Data.(map[string]any); ok {
		if code, ok := data["code"].(string); ok && code != "" {
			te.Code = code
		}
		te.Fields = data
	}
	return te
}

// Client issues JSON-RPC requests through a REST client's transport.
type Client struct {
	rest   *gwhttp.Client
	nextID atomic.Int64
}

// NewClient builds a Client on top of rest; the endpoint is {base}/mcp.
func NewClient(rest *gwhttp.Client) *Client {
	return &Client{rest: rest}
}

// Endpoint returns the JSON-RPC URL.
func (c *Client) Endpoint() string {
	return gwhttp.MCPEndpoint(c.rest.GatewayURL())
}

func (c *Client) send(ctx context.Context, h headers.Set, method string, params any) (*gwhttp.Response, error) {
	req := rpcRequest{
		JSONRPC: mcpapi.JSONRPC_VERSION,
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	return c.rest.Send(ctx, h, http.MethodPost, "/mcp", req)
}

// decode reads a JSON-RPC envelope out of resp. The gateway answers some
// errors with 4xx statuses but a well formed envelope, so the envelope wins
// over the status code when present.
func decode(resp *gwhttp.Response) (*rpcResponse, error) {
	var env rpcResponse
	err := json.Unmarshal(resp.Body, &env)
	if err == nil && (env.Error != nil || len(env.Result) > 0) {
		return &env, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusError()
	}
	if err == nil {
		err = errors.New("response has neither result nor error")
	}
	return nil, resp.PayloadError(err)
}

// ListTools calls tools/list.
func (c *Client) ListTools(ctx context.Context, h headers.Set) ([]tools.Tool, error) {
	resp, err := c.send(ctx, h, string(mcpapi.MethodToolsList), nil)
	if err != nil {
		return nil, err
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, env.Error.toolError()
	}

	var result mcpapi.ListToolsResult
	if err := stdjson.Unmarshal(env.Result, &result); err != nil {
		return nil, resp.PayloadError(err)
	}
	out := make([]tools.Tool, 0, len(result.Tools))
	for _, tl := range result.Tools {
		out = append(out, tools.Tool{
			Name:        tl.Name,
			Description: tl.Description,
			Parameters:  schemaMap(tl.InputSchema),
		})
	}
	return out, nil
}

func schemaMap(s mcpapi.ToolInputSchema) map[string]any {
	out := map[string]any{"type": s.Type}
	if s.Type == "" {
		out["type"] = "object"
	}
	if len(s.Properties) > 0 {
		out["properties"] = s.Properties
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// CallTool calls tools/call. JSON-RPC errors and isError results come back
// as a failed CallResult rather than a Go error.
func (c *Client) CallTool(ctx context.Context, h headers.Set, req tools.CallRequest) (*tools.CallResult, error) {
	if strings.TrimSpace(req.Tool) == "" {
		return nil, errors.New("tool name is required")
	}
	req = tools.NewCallRequest(req.Tool, req.Arguments)
	resp, err := c.send(ctx, h, string(mcpapi.MethodToolsCall), map[string]any{
		"name":      req.Tool,
		"arguments": req.Arguments,
	})
	if err != nil {
		return nil, err
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if env.Error != nil {
		return &tools.CallResult{OK: false, Error: env.Error.toolError()}, nil
	}

	result, err := mcpapi.ParseCallToolResult(&env.Result)
	if err != nil {
		return nil, resp.PayloadError(err)
	}
	text := contentText(result.Content)
	if result.IsError {
		return &tools.CallResult{OK: false, Error: &tools.ToolError{Message: text}}, nil
	}
	return &tools.CallResult{OK: true, Data: decodeText(text)}, nil
}

func contentText(content []mcpapi.Content) string {
	var parts []string
	for _, item := range content {
		if tc, ok := mcpapi.AsTextContent(item); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// decodeText turns JSON text content back into a value; other text stays a
// string.
func decodeText(text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}
	return text
}

// Raw sends an arbitrary JSON-RPC method and returns the undecorated reply.
func (c *Client) Raw(ctx context.Context, h headers.Set, method string, params any) (*gwhttp.RawResponse, error) {
	resp, err := c.send(ctx, h, method, params)
	if err != nil {
		return nil, err
	}
	out := &gwhttp.RawResponse{StatusCode: resp.StatusCode}
	var decoded any
	if err := json.Unmarshal(resp.Body, &decoded); err == nil {
		out.Response = decoded
	} else {
		out.Response = string(resp.Body)
	}
	return out, nil
}

// RawListTools sends tools/list.
func (c *Client) RawListTools(ctx context.Context, h headers.Set) (*gwhttp.RawResponse, error) {
	return c.Raw(ctx, h, string(mcpapi.MethodToolsList), nil)
}

// RawCallTool sends tools/call.
func (c *Client) RawCallTool(ctx context.Context, h headers.Set, req tools.CallRequest) (*gwhttp.RawResponse, error) {
	req = tools.NewCallRequest(req.Tool, req.Arguments)
	return c.Raw(ctx, h, string(mcpapi.MethodToolsCall), map[string]any{
		"name":      req.Tool,
		"arguments": req.Arguments,
	})
}
