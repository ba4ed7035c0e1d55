package mcp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgate/gateway-client/src/headers"
	"github.com/toolgate/gateway-client/src/json"
	gwhttp "github.com/toolgate/gateway-client/src/transports/http"
	"github.com/toolgate/gateway-client/src/tools"
)

type rpcCall struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// fakeGateway mimics the gateway's /mcp handler.
func fakeGateway(t *testing.T, seen *[]rpcCall) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mcp" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var call rpcCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*seen = append(*seen, call)
		w.Header().Set("Content-Type", "application/json")
		switch call.Method {
		case "tools/list":
			io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"tools":[
				{"name":"sum","description":"Adds","inputSchema":{"type":"object","properties":{"a":{"type":"number"}},"required":["a"]}}
			]}}`)
		case "tools/call":
			switch call.Params["name"] {
			case "sum":
				io.WriteString(w, `{"jsonrpc":"2.0","id":2,"result":{"content":[{"type":"text","text":"{\n  \"result\": 8\n}"}]}}`)
			case "hello":
				io.WriteString(w, `{"jsonrpc":"2.0","id":2,"result":{"content":[{"type":"text","text":"Hello, World!"}]}}`)
			default:
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `{"jsonrpc":"2.0","id":2,"error":{"code":-32601,"message":"Tool 'nope' not found","data":{"code":"TOOL_NOT_FOUND"}}}`)
			}
		default:
			io.WriteString(w, `{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"Unknown method: x"}}`)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_ListTools(t *testing.T) {
	var seen []rpcCall
	server := fakeGateway(t, &seen)
	c := NewClient(gwhttp.NewClient(server.URL + "/mcp"))
	assert.Equal(t, server.URL+"/mcp", c.Endpoint())

	list, err := c.ListTools(context.Background(), headers.Build(headers.Fields{Scopes: "math:execute"}))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sum", list[0].Name)

	params, ok := list[0].Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"a"}, params["required"])

	require.Len(t, seen, 1)
	assert.Equal(t, "2.0", seen[0].JSONRPC)
	assert.Equal(t, "tools/list", seen[0].Method)
}

func TestClient_CallTool(t *testing.T) {
	var seen []rpcCall
	server := fakeGateway(t, &seen)
	c := NewClient(gwhttp.NewClient(server.URL))

	res, err := c.CallTool(context.Background(), nil, tools.NewCallRequest("sum", map[string]any{"a": 5, "b": 3}))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, map[string]any{"result": float64(8)}, res.Data)

	res, err = c.CallTool(context.Background(), nil, tools.NewCallRequest("hello", nil))
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", res.Data)

	require.Len(t, seen, 2)
	assert.Equal(t, map[string]any{"a": float64(5), "b": float64(3)}, seen[0].Params["arguments"])
	assert.Equal(t, map[string]any{}, seen[1].Params["arguments"])
	assert.NotEqual(t, seen[0].ID, seen[1].ID)
}

func TestClient_CallToolRPCError(t *testing.T) {
	var seen []rpcCall
	server := fakeGateway(t, &seen)
	c := NewClient(gwhttp.NewClient(server.URL))

	res, err := c.CallTool(context.Background(), nil, tools.NewCallRequest("nope", nil))
	require.NoError(t, err)
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, "TOOL_NOT_FOUND", res.Error.Code)
	assert.Equal(t, "Tool 'nope' not found", res.Error.Message)
}

func TestClient_StatusWithoutEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	}))
	defer server.Close()

	_, err := NewClient(gwhttp.NewClient(server.URL)).ListTools(context.Background(), nil)
	var se *gwhttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestClient_Raw(t *testing.T) {
	var seen []rpcCall
	server := fakeGateway(t, &seen)
	c := NewClient(gwhttp.NewClient(server.URL))

	raw, err := c.RawCallTool(context.Background(), nil, tools.NewCallRequest("nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, raw.StatusCode)
	body, ok := raw.Response.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, body, "error")

	raw, err = c.Raw(context.Background(), nil, "x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, raw.StatusCode)
}
