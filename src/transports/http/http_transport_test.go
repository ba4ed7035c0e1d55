package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgate/gateway-client/src/headers"
	"github.com/toolgate/gateway-client/src/json"
	"github.com/toolgate/gateway-client/src/tools"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClient_ListTools(t *testing.T) {
	var gotHeaders http.Header
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tools", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		gotHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true,"data":{"tools":[
			{"name":"hello","description":"Greets","domain":"A","requiredScopes":["read:greetings"]},
			{"name":"sum","description":"Adds","domain":"B","requiredScopes":["math:execute"]}
		],"count":2}}`)
	})

	c := NewClient(server.URL+"/mcp", WithRequestIDs(func() string { return "req-1" }))
	h := headers.Build(headers.Fields{TenantID: "acme", Scopes: "a, b"})
	list, err := c.ListTools(context.Background(), h)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "hello", list[0].Name)
	assert.Equal(t, "sum", list[1].Name)
	assert.Equal(t, "B", list[1].Domain)

	assert.Equal(t, "acme", gotHeaders.Get("x-tenant-id"))
	assert.Equal(t, "a,b", gotHeaders.Get("x-scopes"))
	assert.Equal(t, "req-1", gotHeaders.Get("x-request-id"))
	assert.Empty(t, gotHeaders.Get("x-actor-id"))
	assert.Equal(t, server.URL+"/mcp", c.GatewayURL())
	assert.Equal(t, server.URL, c.BaseURL())
}

func TestClient_ListToolsMissingKey(t *testing.T) {
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":true}`)
	})
	list, err := NewClient(server.URL).ListTools(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestClient_ListToolsErrors(t *testing.T) {
	long := strings.Repeat("x", 2000)
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "status",
			status: http.StatusServiceUnavailable,
			body:   long,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
				assert.Equal(t, excerptLimit, len([]rune(strings.TrimSuffix(se.Excerpt, "…"))))
				assert.Contains(t, err.Error(), "503")
			},
		},
		{
			name:   "payload",
			status: http.StatusOK,
			body:   "<html>oops</html>",
			check: func(t *testing.T, err error) {
				var pe *PayloadError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "<html>oops</html>", pe.Excerpt)
			},
		},
		{
			name:   "domain",
			status: http.StatusOK,
			body:   `{"ok":false,"error":{"code":"FORBIDDEN","message":"nope"}}`,
			check: func(t *testing.T, err error) {
				var te *tools.ToolError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, "nope", te.Message)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})
			_, err := NewClient(server.URL).ListTools(context.Background(), nil)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url+"/mcp").ListTools(context.Background(), nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, url+"/tools", te.URL)
	assert.NotEmpty(t, te.Hint())
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := NewClient(server.URL, WithTimeout(50*time.Millisecond))
	_, err := c.ListTools(context.Background(), nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Timeout())
}

func TestClient_CallTool(t *testing.T) {
	var body map[string]any
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tools/sum/call", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, `{"ok":true,"data":{"x":1},"context":{"request_id":"r1","tenant_id":"acme"}}`)
	})

	res, err := NewClient(server.URL).CallTool(context.Background(), nil, tools.NewCallRequest("sum", map[string]any{"a": 1, "b": 2}))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, map[string]any{"x": float64(1)}, res.Data)
	require.NotNil(t, res.Context)
	assert.Equal(t, "acme", res.Context.TenantID)
	assert.Equal(t, map[string]any{"arguments": map[string]any{"a": float64(1), "b": float64(2)}}, body)
}

func TestClient_CallToolDomainError(t *testing.T) {
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":false,"error":{"message":"bad arg"}}`)
	})

	res, err := NewClient(server.URL).CallTool(context.Background(), nil, tools.NewCallRequest("sum", nil))
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.EqualError(t, res.Err(), "bad arg")
}

func TestClient_CallToolStatusWithEnvelope(t *testing.T) {
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"ok":false,"error":{"code":"SCOPE_MISSING","message":"Missing required scopes: math:execute"}}`)
	})

	_, err := NewClient(server.URL).CallTool(context.Background(), nil, tools.NewCallRequest("sum", nil))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	require.NotNil(t, se.Domain)
	assert.Equal(t, "SCOPE_MISSING", se.Domain.Code)

	var te *tools.ToolError
	assert.ErrorAs(t, err, &te)
}

func TestClient_CallToolEscapesName(t *testing.T) {
	var path string
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		io.WriteString(w, `{"ok":true}`)
	})
	_, err := NewClient(server.URL).CallTool(context.Background(), nil, tools.NewCallRequest("a/b", nil))
	require.NoError(t, err)
	assert.Equal(t, "/tools/a%2Fb/call", path)

	_, err = NewClient(server.URL).CallTool(context.Background(), nil, tools.NewCallRequest(" ", nil))
	assert.Error(t, err)
}

func TestClient_KeepsGatewayQuery(t *testing.T) {
	var path, query string
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		path, query = r.URL.Path, r.URL.RawQuery
		io.WriteString(w, `{"ok":true,"data":{"tools":[]}}`)
	})
	_, err := NewClient(server.URL+"/mcp?x=1").ListTools(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/tools", path)
	assert.Equal(t, "x=1", query)
}

func TestClient_Raw(t *testing.T) {
	var calls int32
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/tools":
			io.WriteString(w, `{"ok":true,"data":{"tools":[]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, "not here")
		}
	})
	c := NewClient(server.URL)

	raw, err := c.RawListTools(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, raw.StatusCode)
	assert.Equal(t, true, raw.Response.(map[string]any)["ok"])

	raw, err = c.RawCallTool(context.Background(), nil, tools.NewCallRequest("missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, raw.StatusCode)
	assert.Equal(t, "not here", raw.Response)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_Health(t *testing.T) {
	server := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		io.WriteString(w, `{"status":"ok","service":"MCP Gateway"}`)
	})
	out, err := NewClient(server.URL + "/mcp/").Health(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out["status"])
}
